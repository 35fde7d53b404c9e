package model

import (
	"errors"
	"testing"
)

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleCoordinator, true},
		{RoleAdmin, RoleVolunteer, true},
		{RoleCoordinator, RoleAdmin, false},
		{RoleCoordinator, RoleCoordinator, true},
		{RoleCoordinator, RoleVolunteer, true},
		{RoleVolunteer, RoleAdmin, false},
		{RoleVolunteer, RoleCoordinator, false},
		{RoleVolunteer, RoleVolunteer, true},
		{"", "", false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleCoordinator, RoleVolunteer} {
		if !ValidRole(role) {
			t.Errorf("ValidRole(%q) = false", role)
		}
	}
	for _, role := range []string{"", "Admin", "owner", "superuser", " volunteer"} {
		if ValidRole(role) {
			t.Errorf("ValidRole(%q) = true, want false", role)
		}
	}
}

func TestRoleAtLeastRejectsWhatValidRoleRejects(t *testing.T) {
	minimums := []string{RoleAdmin, RoleCoordinator, RoleVolunteer}
	for _, role := range []string{"", "Admin", "COORDINATOR", "guest"} {
		if ValidRole(role) {
			t.Fatalf("ValidRole(%q) = true", role)
		}
		for _, minimum := range minimums {
			if RoleAtLeast(role, minimum) {
				t.Errorf("RoleAtLeast(%q, %q) = true for an unknown role", role, minimum)
			}
			if RoleAtLeast(minimum, role) {
				t.Errorf("RoleAtLeast(%q, %q) = true for an unknown minimum", minimum, role)
			}
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalid) {
			t.Errorf("ValidatePassword(%q) error should wrap ErrInvalid, got %v", tt.password, err)
		}
	}
}
