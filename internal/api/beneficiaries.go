package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/ataa/internal/ledger"
	"github.com/erazemk/ataa/internal/model"
	"github.com/erazemk/ataa/internal/view"
)

// BeneficiariesHandler handles the beneficiary registry endpoints.
type BeneficiariesHandler struct {
	Registry      *ledger.Registry
	Distributions *ledger.Distributions
	Validate      *validator.Validate
	Now           func() time.Time
}

type beneficiaryRequest struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	FatherName      string `json:"father_name" validate:"max=100"`
	GrandfatherName string `json:"grandfather_name" validate:"max=100"`
	FamilyName      string `json:"family_name" validate:"max=100"`
	DateOfBirth     string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	MaritalStatus   string `json:"marital_status" validate:"required"`
	ChildrenCount   int    `json:"children_count" validate:"gte=0,lte=50"`
	Category        string `json:"category" validate:"required"`
	PhoneNumber     string `json:"phone_number" validate:"omitempty,phone"`
	Address         string `json:"address" validate:"max=500"`
	Notes           string `json:"notes" validate:"max=2000"`
}

type beneficiaryResponse struct {
	model.Beneficiary
	DisplayName       string `json:"display_name"`
	NeedsDistribution bool   `json:"needs_distribution"`
}

func (h *BeneficiariesHandler) respond(b model.Beneficiary) beneficiaryResponse {
	return beneficiaryResponse{
		Beneficiary:       b,
		DisplayName:       b.DisplayName(),
		NeedsDistribution: view.NeedsDistribution(b, h.Now()),
	}
}

func (h *BeneficiariesHandler) respondAll(bs []model.Beneficiary) []beneficiaryResponse {
	out := make([]beneficiaryResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, h.respond(b))
	}
	return out
}

// List handles GET /api/beneficiaries. It accepts q (search) and category filters.
func (h *BeneficiariesHandler) List(w http.ResponseWriter, r *http.Request) {
	results := h.Registry.Search(r.URL.Query().Get("q"))

	if raw := r.URL.Query().Get("category"); raw != "" {
		category, err := model.ParseCategory(raw)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		filtered := results[:0]
		for _, b := range results {
			if b.Category == category {
				filtered = append(filtered, b)
			}
		}
		results = filtered
	}

	jsonResponse(w, http.StatusOK, h.respondAll(results))
}

// NeedingDistribution handles GET /api/beneficiaries/needing-distribution.
func (h *BeneficiariesHandler) NeedingDistribution(w http.ResponseWriter, r *http.Request) {
	due := view.NeedingDistribution(h.Registry.Beneficiaries(), h.Now())
	jsonResponse(w, http.StatusOK, h.respondAll(due))
}

// Create handles POST /api/beneficiaries.
func (h *BeneficiariesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req beneficiaryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validateRequest(w, h.Validate, &req) {
		return
	}

	category, err := model.ParseCategory(req.Category)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	marital, err := model.ParseMaritalStatus(req.MaritalStatus)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.Registry.AddBeneficiary(model.Beneficiary{
		FirstName:       strings.TrimSpace(req.FirstName),
		FatherName:      strings.TrimSpace(req.FatherName),
		GrandfatherName: strings.TrimSpace(req.GrandfatherName),
		FamilyName:      strings.TrimSpace(req.FamilyName),
		DateOfBirth:     req.DateOfBirth,
		MaritalStatus:   marital,
		ChildrenCount:   req.ChildrenCount,
		Category:        category,
		PhoneNumber:     strings.TrimSpace(req.PhoneNumber),
		Address:         req.Address,
		Notes:           req.Notes,
	})
	if err != nil {
		ledgerError(w, err, "failed to create beneficiary")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("beneficiary created", "user", claims.Username, "beneficiary_id", b.ID, "category", string(b.Category))
	jsonResponse(w, http.StatusCreated, h.respond(b))
}

// Get handles GET /api/beneficiaries/{id}.
func (h *BeneficiariesHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, ok := h.Registry.Beneficiary(r.PathValue("id"))
	if !ok {
		jsonError(w, http.StatusNotFound, "beneficiary not found")
		return
	}
	jsonResponse(w, http.StatusOK, h.respond(b))
}

// Update handles PATCH /api/beneficiaries/{id}. Omitted fields are left alone.
func (h *BeneficiariesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.BeneficiaryPatch
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if patch.PhoneNumber != nil {
		if err := h.Validate.Var(*patch.PhoneNumber, "omitempty,phone"); err != nil {
			jsonResponse(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": map[string]string{"phone_number": "phone"},
			})
			return
		}
	}
	if patch.Category != nil {
		category, err := model.ParseCategory(string(*patch.Category))
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.Category = &category
	}
	if patch.MaritalStatus != nil {
		marital, err := model.ParseMaritalStatus(string(*patch.MaritalStatus))
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.MaritalStatus = &marital
	}

	b, err := h.Registry.UpdateBeneficiary(r.PathValue("id"), patch)
	if err != nil {
		ledgerError(w, err, "failed to update beneficiary")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("beneficiary updated", "user", claims.Username, "beneficiary_id", b.ID)
	jsonResponse(w, http.StatusOK, h.respond(b))
}

// Delete handles DELETE /api/beneficiaries/{id}. Distribution history is kept.
func (h *BeneficiariesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Registry.RemoveBeneficiary(id); err != nil {
		ledgerError(w, err, "failed to delete beneficiary")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("beneficiary deleted", "user", claims.Username, "beneficiary_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "beneficiary deleted"})
}

// ListDistributions handles GET /api/beneficiaries/{id}/distributions.
func (h *BeneficiariesHandler) ListDistributions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	history := h.Distributions.ByBeneficiary(id)
	if _, ok := h.Registry.Beneficiary(id); !ok && len(history) == 0 {
		jsonError(w, http.StatusNotFound, "beneficiary not found")
		return
	}
	if history == nil {
		history = []model.Distribution{}
	}
	jsonResponse(w, http.StatusOK, history)
}
