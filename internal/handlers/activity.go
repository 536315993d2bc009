package handlers

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/smartops/custodian/internal/ledger"
	"github.com/smartops/custodian/internal/services"
)

type ActivityHandler struct {
	custodian    *ledger.Custodian
	feed         *services.ActivityFeed
	defaultLimit int
}

func NewActivityHandler(custodian *ledger.Custodian, feed *services.ActivityFeed, defaultLimit int) *ActivityHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &ActivityHandler{custodian: custodian, feed: feed, defaultLimit: defaultLimit}
}

// RecentActivity returns the most recent entries across all partitions,
// merged into one chronological feed.
func (h *ActivityHandler) RecentActivity(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(h.defaultLimit)))
	if limit < 1 || limit > 500 {
		limit = h.defaultLimit
	}

	activities, err := h.custodian.RecentActivity(c.Context(), limit)
	if err != nil {
		return ledgerError(c, err)
	}

	return c.JSON(fiber.Map{
		"activities": activities,
		"total":      len(activities),
	})
}

// UpgradeCheck is middleware that checks if the request is a websocket upgrade.
func (h *ActivityHandler) UpgradeCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// HandleFeed streams every newly recorded entry to the websocket client.
// Dashboards combine this with RecentActivity: load the page, then follow
// the live feed.
func (h *ActivityHandler) HandleFeed() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		id, ch := h.feed.Subscribe()
		defer h.feed.Unsubscribe(id)

		// Drain the client side so close frames are processed.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case a, ok := <-ch:
				if !ok {
					return
				}
				if err := c.WriteJSON(a); err != nil {
					slog.Info("Feed subscriber disconnected", "id", id, "error", err)
					return
				}
			case <-ping.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
}
