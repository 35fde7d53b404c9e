package source

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/ataa/internal/model"
)

// Case is a beneficiary as served by GET /cases.
type Case struct {
	ID             string `json:"_id"`
	FullName       string `json:"fullName"`
	BirthDate      string `json:"birthDate"`
	MaritalStatus  string `json:"maritalStatus"`
	ChildrenCount  int    `json:"childrenCount"`
	Classification string `json:"classification"`
	Notes          string `json:"notes"`
	IsActive       bool   `json:"isActive"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// InventoryEntry is a stock entry as served by GET /inventory/all.
type InventoryEntry struct {
	ID      string `json:"_id"`
	Product struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	} `json:"product"`
	Volume struct {
		Quantity decimal.Decimal `json:"quantity"`
		Unit     string          `json:"unit"`
	} `json:"volume"`
	LastUpdated string `json:"last_updated"`
}

// DemoBeneficiary is the split-name shape used by seed files and older exports.
type DemoBeneficiary struct {
	ID               string  `json:"id"`
	FirstName        string  `json:"firstName"`
	SecondName       string  `json:"secondName"`
	ThirdName        string  `json:"thirdName"`
	LastName         string  `json:"lastName"`
	DateOfBirth      string  `json:"dateOfBirth"`
	MaritalStatus    string  `json:"maritalStatus"`
	ChildrenCount    int     `json:"childrenCount"`
	Category         string  `json:"category"`
	LastDistribution *string `json:"lastDistribution"`
	PhoneNumber      string  `json:"phoneNumber"`
	Address          string  `json:"address"`
	Notes            string  `json:"notes"`
	CreatedAt        string  `json:"createdAt"`
}

// SplitFullName distributes the whitespace-separated tokens of a full name over
// the four name parts. One token is a first name, two add a family name, three
// add a father's name in between; from four tokens on, everything after the
// grandfather's name is the family name.
func SplitFullName(full string) (first, father, grandfather, family string) {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
	case 1:
		first = tokens[0]
	case 2:
		first, family = tokens[0], tokens[1]
	case 3:
		first, father, family = tokens[0], tokens[1], tokens[2]
	default:
		first, father, grandfather = tokens[0], tokens[1], tokens[2]
		family = strings.Join(tokens[3:], " ")
	}
	return first, father, grandfather, family
}

// MapCases converts cases into beneficiaries. Inactive cases are kept and
// marked Inactive; cases that cannot be mapped are returned as skip errors.
func MapCases(cases []Case) ([]model.Beneficiary, []error) {
	var out []model.Beneficiary
	var skipped []error
	for _, c := range cases {
		b, err := mapCase(c)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("case %s: %w", c.ID, err))
			continue
		}
		out = append(out, b)
	}
	return out, skipped
}

func mapCase(c Case) (model.Beneficiary, error) {
	category, err := model.ParseCategory(c.Classification)
	if err != nil {
		return model.Beneficiary{}, err
	}
	marital, err := model.ParseMaritalStatus(c.MaritalStatus)
	if err != nil {
		return model.Beneficiary{}, err
	}

	b := model.Beneficiary{
		ID:            c.ID,
		DateOfBirth:   normalizeDate(c.BirthDate),
		MaritalStatus: marital,
		ChildrenCount: c.ChildrenCount,
		Category:      category,
		Notes:         c.Notes,
		Inactive:      !c.IsActive,
		CreatedAt:     parseTime(c.CreatedAt),
	}
	b.FirstName, b.FatherName, b.GrandfatherName, b.FamilyName = SplitFullName(c.FullName)
	if err := b.Validate(); err != nil {
		return model.Beneficiary{}, err
	}
	return b, nil
}

// MapInventory converts inventory entries into items. Remote entries carry no
// minimum level, so every item gets minimumLevel.
func MapInventory(entries []InventoryEntry, minimumLevel decimal.Decimal) ([]model.Item, []error) {
	var out []model.Item
	var skipped []error
	for _, e := range entries {
		itemType, err := model.ParseItemType(e.Product.Category)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("inventory %s: %w", e.ID, err))
			continue
		}
		item := model.Item{
			ID:           e.ID,
			Name:         strings.TrimSpace(e.Product.Name),
			Type:         itemType,
			Quantity:     e.Volume.Quantity,
			Unit:         e.Volume.Unit,
			MinimumLevel: minimumLevel,
			LastUpdated:  parseTime(e.LastUpdated),
		}
		if err := item.Validate(); err != nil {
			skipped = append(skipped, fmt.Errorf("inventory %s: %w", e.ID, err))
			continue
		}
		out = append(out, item)
	}
	return out, skipped
}

// DecodeDemoBeneficiaries reads a JSON array of split-name beneficiaries.
func DecodeDemoBeneficiaries(r io.Reader) ([]model.Beneficiary, error) {
	var records []DemoBeneficiary
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding beneficiaries: %w", err)
	}

	out := make([]model.Beneficiary, 0, len(records))
	for _, d := range records {
		category, err := model.ParseCategory(d.Category)
		if err != nil {
			return nil, fmt.Errorf("beneficiary %s: %w", d.ID, err)
		}
		marital, err := model.ParseMaritalStatus(d.MaritalStatus)
		if err != nil {
			return nil, fmt.Errorf("beneficiary %s: %w", d.ID, err)
		}
		b := model.Beneficiary{
			ID:              d.ID,
			FirstName:       d.FirstName,
			FatherName:      d.SecondName,
			GrandfatherName: d.ThirdName,
			FamilyName:      d.LastName,
			DateOfBirth:     normalizeDate(d.DateOfBirth),
			MaritalStatus:   marital,
			ChildrenCount:   d.ChildrenCount,
			Category:        category,
			PhoneNumber:     d.PhoneNumber,
			Address:         d.Address,
			Notes:           d.Notes,
			CreatedAt:       parseTime(d.CreatedAt),
		}
		if d.LastDistribution != nil {
			if t := parseTime(*d.LastDistribution); !t.IsZero() {
				b.LastDistribution = &t
			}
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("beneficiary %s: %w", d.ID, err)
		}
		out = append(out, b)
	}
	return out, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", model.DateLayout}

// parseTime accepts RFC 3339 timestamps and plain dates. Unparseable input
// yields the zero time, which the ledgers replace with the import time.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// normalizeDate reduces a timestamp or date to YYYY-MM-DD, or "" if unparseable.
func normalizeDate(s string) string {
	t := parseTime(s)
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}
