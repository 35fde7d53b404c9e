package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/ataa/internal/model"
)

const beneficiaryColumns = `id, first_name, father_name, grandfather_name, family_name, date_of_birth,
	marital_status, children_count, category, phone_number, address, notes, inactive, created_at, last_distribution`

// SaveBeneficiary inserts or updates a beneficiary. Updates keep the original
// row position.
func SaveBeneficiary(ctx context.Context, db *sql.DB, b model.Beneficiary) error {
	if err := saveBeneficiary(ctx, db, b); err != nil {
		return fmt.Errorf("saving beneficiary: %w", err)
	}
	return nil
}

func saveBeneficiary(ctx context.Context, e execer, b model.Beneficiary) error {
	var last any
	if b.LastDistribution != nil {
		last = b.LastDistribution.UTC()
	}
	_, err := e.ExecContext(ctx,
		`INSERT INTO beneficiaries (`+beneficiaryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     first_name = excluded.first_name,
		     father_name = excluded.father_name,
		     grandfather_name = excluded.grandfather_name,
		     family_name = excluded.family_name,
		     date_of_birth = excluded.date_of_birth,
		     marital_status = excluded.marital_status,
		     children_count = excluded.children_count,
		     category = excluded.category,
		     phone_number = excluded.phone_number,
		     address = excluded.address,
		     notes = excluded.notes,
		     inactive = excluded.inactive,
		     created_at = excluded.created_at,
		     last_distribution = excluded.last_distribution`,
		b.ID, b.FirstName, b.FatherName, b.GrandfatherName, b.FamilyName, b.DateOfBirth,
		string(b.MaritalStatus), b.ChildrenCount, string(b.Category), b.PhoneNumber, b.Address, b.Notes,
		b.Inactive, b.CreatedAt.UTC(), last,
	)
	return err
}

// DeleteBeneficiary removes a beneficiary. Its distributions are kept.
func DeleteBeneficiary(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM beneficiaries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting beneficiary: %w", err)
	}
	return nil
}

// ReplaceBeneficiaries overwrites the table with records, in order.
func ReplaceBeneficiaries(ctx context.Context, db *sql.DB, records []model.Beneficiary) error {
	return inTx(ctx, db, "beneficiaries", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM beneficiaries`); err != nil {
			return fmt.Errorf("clearing beneficiaries: %w", err)
		}
		for _, b := range records {
			if err := saveBeneficiary(ctx, tx, b); err != nil {
				return fmt.Errorf("saving beneficiary %s: %w", b.ID, err)
			}
		}
		return nil
	})
}

// ListBeneficiaries returns every beneficiary in insertion order.
func ListBeneficiaries(ctx context.Context, db *sql.DB) ([]model.Beneficiary, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+beneficiaryColumns+` FROM beneficiaries ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing beneficiaries: %w", err)
	}
	defer rows.Close()

	var out []model.Beneficiary
	for rows.Next() {
		var b model.Beneficiary
		var marital, category string
		var last sql.NullTime
		if err := rows.Scan(&b.ID, &b.FirstName, &b.FatherName, &b.GrandfatherName, &b.FamilyName, &b.DateOfBirth,
			&marital, &b.ChildrenCount, &category, &b.PhoneNumber, &b.Address, &b.Notes, &b.Inactive, &b.CreatedAt, &last); err != nil {
			return nil, fmt.Errorf("scanning beneficiary: %w", err)
		}
		b.MaritalStatus = model.MaritalStatus(marital)
		b.Category = model.Category(category)
		b.CreatedAt = b.CreatedAt.UTC()
		b.LastDistribution = nullTime(last)
		out = append(out, b)
	}
	return out, rows.Err()
}
