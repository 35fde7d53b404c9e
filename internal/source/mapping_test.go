package source

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/ataa/internal/model"
)

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		in                                 string
		first, father, grandfather, family string
	}{
		{"", "", "", "", ""},
		{"Ahmed", "Ahmed", "", "", ""},
		{"Ahmed Ali", "Ahmed", "", "", "Ali"},
		{"  Ahmed   Mahmoud Ali ", "Ahmed", "Mahmoud", "", "Ali"},
		{"Ahmed Mahmoud Saleh Ali", "Ahmed", "Mahmoud", "Saleh", "Ali"},
		{"Ahmed Mahmoud Saleh Al Harbi", "Ahmed", "Mahmoud", "Saleh", "Al Harbi"},
	}
	for _, tt := range tests {
		first, father, grandfather, family := SplitFullName(tt.in)
		assert.Equal(t, []string{tt.first, tt.father, tt.grandfather, tt.family},
			[]string{first, father, grandfather, family}, "input %q", tt.in)
	}
}

func TestMapCases(t *testing.T) {
	cases := []Case{
		{ID: "c1", FullName: "Ahmed Mahmoud Ali", BirthDate: "1985-03-04T00:00:00.000Z", MaritalStatus: "Married",
			ChildrenCount: 4, Classification: "A", Notes: "rent arrears", IsActive: true, CreatedAt: "2025-01-02T10:00:00Z"},
		{ID: "c2", FullName: "Inactive Person", MaritalStatus: "single", Classification: "b"},
		{ID: "c3", FullName: "Bad Category", MaritalStatus: "single", Classification: "vip", IsActive: true},
		{ID: "c4", FullName: "Sara", MaritalStatus: "widowed", Classification: "orphans", IsActive: true, BirthDate: "garbage"},
	}

	got, skipped := MapCases(cases)
	require.Len(t, got, 3)
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], model.ErrInvalid)
	assert.Contains(t, skipped[0].Error(), "c3")

	ahmed := got[0]
	assert.Equal(t, "c1", ahmed.ID)
	assert.Equal(t, "Ahmed", ahmed.FirstName)
	assert.Equal(t, "Mahmoud", ahmed.FatherName)
	assert.Equal(t, "Ali", ahmed.FamilyName)
	assert.Equal(t, "1985-03-04", ahmed.DateOfBirth)
	assert.Equal(t, model.MaritalMarried, ahmed.MaritalStatus)
	assert.Equal(t, model.CategoryA, ahmed.Category)
	assert.Equal(t, 4, ahmed.ChildrenCount)
	assert.Equal(t, 2025, ahmed.CreatedAt.Year())
	assert.Nil(t, ahmed.LastDistribution)
	assert.False(t, ahmed.Inactive)

	assert.Equal(t, "c2", got[1].ID)
	assert.True(t, got[1].Inactive, "inactive cases are imported and marked")

	assert.Equal(t, "", got[2].DateOfBirth)
	assert.True(t, got[2].CreatedAt.IsZero())
}

func TestMapInventory(t *testing.T) {
	var entries []InventoryEntry
	raw := `[
		{"_id":"i1","product":{"name":" Rice ","category":"food"},"volume":{"quantity":12.5,"unit":"kg"},"last_updated":"2026-01-05T08:00:00Z"},
		{"_id":"i2","product":{"name":"Blankets","category":"non-food"},"volume":{"quantity":"30","unit":"pcs"}},
		{"_id":"i3","product":{"name":"Fuel","category":"energy"},"volume":{"quantity":1,"unit":"l"}},
		{"_id":"i4","product":{"name":"Broken","category":"food"},"volume":{"quantity":-2,"unit":"kg"}}
	]`
	require.NoError(t, decodeJSON(strings.NewReader(raw), &entries))

	items, skipped := MapInventory(entries, decimal.NewFromInt(1))
	require.Len(t, items, 2)
	assert.Len(t, skipped, 2)

	assert.Equal(t, "Rice", items[0].Name)
	assert.Equal(t, model.ItemTypeFood, items[0].Type)
	assert.True(t, items[0].Quantity.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, items[0].MinimumLevel.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 5, items[0].LastUpdated.Day())
	assert.Equal(t, model.ItemTypeNonFood, items[1].Type)
	assert.True(t, items[1].Quantity.Equal(decimal.NewFromInt(30)))
}

func TestDecodeDemoBeneficiaries(t *testing.T) {
	raw := `[{
		"id": "1", "firstName": "Mohammed", "secondName": "Abdullah", "thirdName": "Saleh", "lastName": "Al-Qahtani",
		"dateOfBirth": "1975-06-15", "maritalStatus": "married", "childrenCount": 5, "category": "a",
		"lastDistribution": "2026-01-10T09:00:00Z", "phoneNumber": "0501234567", "address": "Riyadh",
		"notes": "", "createdAt": "2025-12-01T00:00:00Z"
	}, {
		"id": "2", "firstName": "Noura", "secondName": "", "thirdName": "", "lastName": "",
		"dateOfBirth": "", "maritalStatus": "widowed", "childrenCount": 0, "category": "orphans",
		"lastDistribution": null, "createdAt": ""
	}]`

	got, err := DecodeDemoBeneficiaries(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Mohammed Abdullah Saleh Al-Qahtani", got[0].FullName())
	assert.Equal(t, "0501234567", got[0].PhoneNumber)
	require.NotNil(t, got[0].LastDistribution)
	assert.Equal(t, 10, got[0].LastDistribution.Day())
	assert.Nil(t, got[1].LastDistribution)

	_, err = DecodeDemoBeneficiaries(strings.NewReader(`[{"id":"x","firstName":"A","maritalStatus":"single","category":"c"}]`))
	assert.ErrorIs(t, err, model.ErrInvalid)
}
