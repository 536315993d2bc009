package handlers

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartops/custodian/internal/config"
	"github.com/smartops/custodian/internal/ledger"
	"github.com/smartops/custodian/internal/middleware"
)

type AuthHandler struct {
	cfg       *config.Config
	custodian *ledger.Custodian

	// passwordHash is replaced by ChangePassword while logins read it.
	mu           sync.RWMutex
	passwordHash string
}

func NewAuthHandler(cfg *config.Config, custodian *ledger.Custodian) *AuthHandler {
	// Hash the admin password on startup
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash admin password", "error", err)
	}
	return &AuthHandler{
		cfg:          cfg,
		custodian:    custodian,
		passwordHash: string(hash),
	}
}

func (h *AuthHandler) currentHash() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.passwordHash
}

func (h *AuthHandler) setHash(hash string) {
	h.mu.Lock()
	h.passwordHash = hash
	h.mu.Unlock()
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	if req.Username != h.cfg.AdminUsername {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid credentials",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.currentHash()), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid credentials",
		})
	}

	access, refresh, err := middleware.GenerateTokens(req.Username, h.cfg.JWTSecret, h.cfg.AdminDisplayName, h.cfg.AdminRole)
	if err != nil {
		slog.Error("Failed to generate tokens", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to generate tokens",
		})
	}

	// The login itself is an auditable user action. If the ledger write
	// fails the login still succeeds, but the caller sees it was not logged.
	audited := true
	if _, err := h.custodian.RecordUserAction(c.Context(), "login", req.Username,
		"Operator logged in", req.Username, map[string]any{"ip": c.IP()}); err != nil {
		audited = false
		slog.Error("Login succeeded but could not be logged", "error", err)
	}

	return c.JSON(fiber.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"audit_logged":  audited,
		"user": fiber.Map{
			"username":        req.Username,
			"display_name":    h.cfg.AdminDisplayName,
			"role":            h.cfg.AdminRole,
			"avatar_initials": buildInitials(h.cfg.AdminDisplayName),
		},
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	claims, err := middleware.ParseOperatorToken(req.RefreshToken, h.cfg.JWTSecret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid or expired refresh token",
		})
	}

	access, refresh, err := middleware.GenerateTokens(claims.Username, h.cfg.JWTSecret, claims.DisplayName, claims.Role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to generate tokens",
		})
	}

	return c.JSON(fiber.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"user": fiber.Map{
			"username":        claims.Username,
			"display_name":    claims.DisplayName,
			"role":            claims.Role,
			"avatar_initials": buildInitials(claims.DisplayName),
		},
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	displayName, _ := c.Locals("display_name").(string)
	role, _ := c.Locals("role").(string)

	return c.JSON(fiber.Map{
		"username":        username,
		"display_name":    displayName,
		"role":            role,
		"avatar_initials": buildInitials(displayName),
	})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Both old_password and new_password are required",
		})
	}

	if len(req.NewPassword) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "New password must be at least 8 characters",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.currentHash()), []byte(req.OldPassword)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Current password is incorrect",
		})
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash new password", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to update password",
		})
	}

	h.setHash(string(newHash))

	audited := true
	username, _ := c.Locals("username").(string)
	if _, err := h.custodian.RecordUserAction(c.Context(), "change_password", username,
		"Operator password changed", username, nil); err != nil {
		audited = false
		slog.Error("Password change succeeded but could not be logged", "error", err)
	}

	return c.JSON(fiber.Map{
		"message":      "Password changed successfully",
		"audit_logged": audited,
	})
}

// buildInitials extracts uppercase initials from a display name.
// e.g. "Jordan Reyes" -> "JR", "Jordan" -> "J"
func buildInitials(name string) string {
	if name == "" {
		return "?"
	}
	parts := strings.Fields(name)
	initials := ""
	for _, p := range parts {
		if len(p) > 0 {
			initials += strings.ToUpper(p[:1])
		}
	}
	if len(initials) > 2 {
		initials = initials[:2]
	}
	return initials
}
