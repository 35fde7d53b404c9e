package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/ataa/internal/model"
	"github.com/erazemk/ataa/internal/report"
	"github.com/erazemk/ataa/internal/source"
	"github.com/erazemk/ataa/internal/store"
	"github.com/erazemk/ataa/internal/view"
)

// syncTimeout bounds a sync started from the API.
const syncTimeout = 2 * time.Minute

// DashboardHandler serves the aggregated views, the workbook export and the
// remote sync controls.
type DashboardHandler struct {
	Ledgers store.Ledgers
	Syncer  *source.Syncer
	Now     func() time.Time
}

// Summary handles GET /api/dashboard.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	d := view.Summarize(
		h.Ledgers.Registry.Beneficiaries(),
		h.Ledgers.Inventory.Items(),
		h.Ledgers.Distributions.Recent(0),
		h.Now(),
	)
	jsonResponse(w, http.StatusOK, d)
}

// Export handles GET /api/reports/export.xlsx.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	now := h.Now()
	snapshot := report.Snapshot{
		Beneficiaries: h.Ledgers.Registry.Beneficiaries(),
		Items:         h.Ledgers.Inventory.Items(),
		Distributions: h.Ledgers.Distributions.All(),
		GeneratedAt:   now,
	}

	// Render fully before writing headers so a failure can still return JSON.
	var buf bytes.Buffer
	if err := report.Write(&buf, snapshot); err != nil {
		slog.Error("failed to render report", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	filename := fmt.Sprintf("ataa-report-%s.xlsx", now.Format("2006-01-02"))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())

	claims := GetClaims(r.Context())
	slog.Info("report exported", "user", claims.Username, "bytes", buf.Len())
}

// SyncStatus handles GET /api/sync.
func (h *DashboardHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if h.Syncer == nil {
		jsonError(w, http.StatusServiceUnavailable, "remote source not configured")
		return
	}
	jsonResponse(w, http.StatusOK, h.Syncer.States())
}

// Sync handles POST /api/sync/{collection}. The import runs synchronously and
// the response carries the collection's resulting state.
func (h *DashboardHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if h.Syncer == nil {
		jsonError(w, http.StatusServiceUnavailable, "remote source not configured")
		return
	}

	c, err := source.ParseCollection(r.PathValue("collection"))
	if err != nil {
		jsonError(w, http.StatusNotFound, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("remote sync requested", "user", claims.Username, "collection", string(c))

	ctx, cancel := context.WithTimeout(r.Context(), syncTimeout)
	defer cancel()
	if err := h.Syncer.Sync(ctx, c); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, model.ErrInvalid) {
			status = http.StatusUnprocessableEntity
		}
		jsonResponse(w, status, map[string]any{
			"error": err.Error(),
			"state": h.Syncer.State(c),
		})
		return
	}
	jsonResponse(w, http.StatusOK, h.Syncer.State(c))
}
