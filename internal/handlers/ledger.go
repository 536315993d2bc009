package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/smartops/custodian/internal/ledger"
)

type LedgerHandler struct {
	custodian *ledger.Custodian
}

func NewLedgerHandler(custodian *ledger.Custodian) *LedgerHandler {
	return &LedgerHandler{custodian: custodian}
}

// ledgerError maps the ledger's error taxonomy onto HTTP statuses. Storage
// failures get a distinct flag: for callers "the action happened but was not
// logged" is a different incident than "the request was bad".
func ledgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	case errors.Is(err, ledger.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	case errors.Is(err, ledger.ErrStorage):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":           true,
			"storage_failure": true,
			"message":         err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Internal server error",
		})
	}
}

// RecordAction appends one reported action to the ledger. The entry is
// durable before the response is sent.
func (h *LedgerHandler) RecordAction(c *fiber.Ctx) error {
	var req ledger.Action
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	e, err := h.custodian.RecordAction(c.Context(), req)
	if err != nil {
		return ledgerError(c, err)
	}

	partition, _ := ledger.PartitionFor(e.ActionType)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"entry_id":  e.EntryID,
		"partition": partition,
		"hash":      e.Hash,
		"timestamp": e.Timestamp,
	})
}

// ListEntries returns one partition's entries, filterable by action type,
// user and time range, newest first when order=desc.
func (h *LedgerHandler) ListEntries(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	filter := ledger.Filter{
		ActionType:  ledger.ActionType(c.Query("action_type", "")),
		UserID:      c.Query("user_id", ""),
		NewestFirst: c.Query("order", "") == "desc",
	}
	if v := c.Query("start_time", ""); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   true,
				"message": "Invalid start_time, expected RFC3339",
			})
		}
		filter.Start = &t
	}
	if v := c.Query("end_time", ""); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   true,
				"message": "Invalid end_time, expected RFC3339",
			})
		}
		filter.End = &t
	}

	entries, stats, err := h.custodian.GetEntries(c.Context(), c.Params("name"), filter, limit, offset)
	if err != nil {
		return ledgerError(c, err)
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"stats":   stats,
		"limit":   limit,
		"offset":  offset,
	})
}

// ValidatePartition verifies the hash chain of one partition.
func (h *LedgerHandler) ValidatePartition(c *fiber.Ctx) error {
	result, err := h.custodian.ValidateChain(c.Context(), c.Params("name"))
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(result)
}

// ValidateAll verifies every partition and flags the overall outcome.
func (h *LedgerHandler) ValidateAll(c *fiber.Ctx) error {
	results, err := h.custodian.ValidateAll(c.Context())
	if err != nil {
		return ledgerError(c, err)
	}

	allValid := true
	for _, r := range results {
		if !r.Valid {
			allValid = false
			break
		}
	}
	return c.JSON(fiber.Map{
		"valid":      allValid,
		"partitions": results,
	})
}

// PartitionStats returns the stats of one partition.
func (h *LedgerHandler) PartitionStats(c *fiber.Ctx) error {
	stats, err := h.custodian.Stats(c.Context(), c.Params("name"))
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(stats)
}

// AllStats returns per-partition stats plus the aggregate entry count.
func (h *LedgerHandler) AllStats(c *fiber.Ctx) error {
	stats, err := h.custodian.StatsAll(c.Context())
	if err != nil {
		return ledgerError(c, err)
	}

	total := 0
	for _, s := range stats {
		total += s.TotalEntries
	}
	return c.JSON(fiber.Map{
		"total_entries": total,
		"partitions":    stats,
	})
}

// ExportPartition builds a transfer package for archival hand-off.
func (h *LedgerHandler) ExportPartition(c *fiber.Ctx) error {
	pkg, err := h.custodian.ExportTransferPackage(c.Context(), c.Params("name"))
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(pkg)
}
