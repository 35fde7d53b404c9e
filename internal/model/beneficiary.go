package model

import (
	"fmt"
	"strings"
	"time"
)

// Category classifies a beneficiary for reporting.
type Category string

// Beneficiary categories.
const (
	CategoryOrphans Category = "orphans"
	CategoryA       Category = "a"
	CategoryB       Category = "b"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryOrphans, CategoryA, CategoryB}

// ParseCategory converts user or API input into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryOrphans, CategoryA, CategoryB:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalid, s)
}

// MaritalStatus of a beneficiary.
type MaritalStatus string

// Marital statuses.
const (
	MaritalSingle   MaritalStatus = "single"
	MaritalMarried  MaritalStatus = "married"
	MaritalDivorced MaritalStatus = "divorced"
	MaritalWidowed  MaritalStatus = "widowed"
)

// ParseMaritalStatus converts user or API input into a MaritalStatus.
func ParseMaritalStatus(s string) (MaritalStatus, error) {
	m := MaritalStatus(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MaritalSingle, MaritalMarried, MaritalDivorced, MaritalWidowed:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown marital status %q", ErrInvalid, s)
}

// DateLayout is the format of DateOfBirth.
const DateLayout = "2006-01-02"

// Beneficiary is a person registered to receive aid distributions.
type Beneficiary struct {
	ID               string        `json:"id"`
	FirstName        string        `json:"first_name"`
	FatherName       string        `json:"father_name"`
	GrandfatherName  string        `json:"grandfather_name"`
	FamilyName       string        `json:"family_name"`
	DateOfBirth      string        `json:"date_of_birth,omitempty"`
	MaritalStatus    MaritalStatus `json:"marital_status"`
	ChildrenCount    int           `json:"children_count"`
	Category         Category      `json:"category"`
	PhoneNumber      string        `json:"phone_number,omitempty"`
	Address          string        `json:"address,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	Inactive         bool          `json:"inactive"`
	CreatedAt        time.Time     `json:"created_at"`
	LastDistribution *time.Time    `json:"last_distribution"`
}

// FullName joins the four name parts in order, separated by single spaces.
func (b Beneficiary) FullName() string {
	return strings.Join([]string{b.FirstName, b.FatherName, b.GrandfatherName, b.FamilyName}, " ")
}

// DisplayName joins the non-empty name parts.
func (b Beneficiary) DisplayName() string {
	var parts []string
	for _, p := range []string{b.FirstName, b.FatherName, b.GrandfatherName, b.FamilyName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Validate checks the record invariants.
func (b Beneficiary) Validate() error {
	if strings.TrimSpace(b.FirstName) == "" {
		return fmt.Errorf("%w: first name required", ErrInvalid)
	}
	if b.ChildrenCount < 0 {
		return fmt.Errorf("%w: children count must not be negative", ErrInvalid)
	}
	if _, err := ParseCategory(string(b.Category)); err != nil {
		return err
	}
	if _, err := ParseMaritalStatus(string(b.MaritalStatus)); err != nil {
		return err
	}
	if b.DateOfBirth != "" {
		if _, err := time.Parse(DateLayout, b.DateOfBirth); err != nil {
			return fmt.Errorf("%w: date of birth must be YYYY-MM-DD", ErrInvalid)
		}
	}
	return nil
}

// Normalize replaces the enum fields with their canonical values and
// validates the result.
func (b *Beneficiary) Normalize() error {
	category, err := ParseCategory(string(b.Category))
	if err != nil {
		return err
	}
	marital, err := ParseMaritalStatus(string(b.MaritalStatus))
	if err != nil {
		return err
	}
	b.Category = category
	b.MaritalStatus = marital
	return b.Validate()
}

// Clone returns a copy that shares no pointers with b.
func (b Beneficiary) Clone() Beneficiary {
	if b.LastDistribution != nil {
		t := *b.LastDistribution
		b.LastDistribution = &t
	}
	return b
}

// BeneficiaryPatch lists the fields a partial update may change. Nil fields are left alone.
type BeneficiaryPatch struct {
	FirstName       *string        `json:"first_name"`
	FatherName      *string        `json:"father_name"`
	GrandfatherName *string        `json:"grandfather_name"`
	FamilyName      *string        `json:"family_name"`
	DateOfBirth     *string        `json:"date_of_birth"`
	MaritalStatus   *MaritalStatus `json:"marital_status"`
	ChildrenCount   *int           `json:"children_count"`
	Category        *Category      `json:"category"`
	PhoneNumber     *string        `json:"phone_number"`
	Address         *string        `json:"address"`
	Notes           *string        `json:"notes"`
	Inactive        *bool          `json:"inactive"`
}

// Apply returns b with the patch applied. The result is not validated.
func (p BeneficiaryPatch) Apply(b Beneficiary) Beneficiary {
	if p.FirstName != nil {
		b.FirstName = *p.FirstName
	}
	if p.FatherName != nil {
		b.FatherName = *p.FatherName
	}
	if p.GrandfatherName != nil {
		b.GrandfatherName = *p.GrandfatherName
	}
	if p.FamilyName != nil {
		b.FamilyName = *p.FamilyName
	}
	if p.DateOfBirth != nil {
		b.DateOfBirth = *p.DateOfBirth
	}
	if p.MaritalStatus != nil {
		b.MaritalStatus = *p.MaritalStatus
	}
	if p.ChildrenCount != nil {
		b.ChildrenCount = *p.ChildrenCount
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.PhoneNumber != nil {
		b.PhoneNumber = *p.PhoneNumber
	}
	if p.Address != nil {
		b.Address = *p.Address
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if p.Inactive != nil {
		b.Inactive = *p.Inactive
	}
	return b
}
