package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/erazemk/ataa/internal/ledger"
	"github.com/erazemk/ataa/internal/metrics"
	"github.com/erazemk/ataa/internal/model"
	"github.com/erazemk/ataa/internal/store"
)

// maxListLimit caps the limit query parameter of distribution listings.
const maxListLimit = 500

// DistributionsHandler handles the distribution ledger endpoints.
type DistributionsHandler struct {
	Ledgers  store.Ledgers
	Metrics  *metrics.Metrics
	Validate *validator.Validate
}

type distributionLineRequest struct {
	ItemID   string          `json:"item_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

type distributionRequest struct {
	BeneficiaryID string                    `json:"beneficiary_id" validate:"required"`
	Date          *time.Time                `json:"date"`
	Items         []distributionLineRequest `json:"items" validate:"required,min=1,dive"`
	Notes         string                    `json:"notes" validate:"max=2000"`
}

// List handles GET /api/distributions. With beneficiary_id it returns that
// beneficiary's history in recorded order; otherwise the newest distributions
// up to limit.
func (h *DistributionsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if id := query.Get("beneficiary_id"); id != "" {
		history := h.Ledgers.Distributions.ByBeneficiary(id)
		if history == nil {
			history = []model.Distribution{}
		}
		jsonResponse(w, http.StatusOK, history)
		return
	}

	limit := ledger.DefaultRecentLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	jsonResponse(w, http.StatusOK, h.Ledgers.Distributions.Recent(limit))
}

// Create handles POST /api/distributions. Either every line is issued or none is.
func (h *DistributionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req distributionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validateRequest(w, h.Validate, &req) {
		return
	}

	nd := ledger.NewDistribution{
		BeneficiaryID: strings.TrimSpace(req.BeneficiaryID),
		Notes:         req.Notes,
		Lines:         make([]model.DistributionLine, 0, len(req.Items)),
	}
	if req.Date != nil {
		nd.Date = req.Date.UTC()
	}
	for _, line := range req.Items {
		nd.Lines = append(nd.Lines, model.DistributionLine{ItemID: line.ItemID, Quantity: line.Quantity})
	}

	claims := GetClaims(r.Context())
	d, err := h.Ledgers.Distributions.Add(nd)
	if err != nil {
		if h.Metrics != nil {
			h.Metrics.ObserveRejection(err)
		}
		slog.Warn("distribution rejected", "user", claims.Username, "beneficiary_id", nd.BeneficiaryID, "error", err)
		ledgerError(w, err, "failed to record distribution")
		return
	}

	slog.Info("distribution created", "user", claims.Username, "distribution_id", d.ID,
		"beneficiary_id", d.BeneficiaryID, "lines", len(d.Lines))
	jsonResponse(w, http.StatusCreated, d)
}
