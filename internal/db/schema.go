package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Ledger tables keep insertion order
// through their implicit rowid.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'volunteer' CHECK (role IN ('admin', 'coordinator', 'volunteer')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS beneficiaries (
    id                TEXT PRIMARY KEY,
    first_name        TEXT NOT NULL,
    father_name       TEXT NOT NULL DEFAULT '',
    grandfather_name  TEXT NOT NULL DEFAULT '',
    family_name       TEXT NOT NULL DEFAULT '',
    date_of_birth     TEXT NOT NULL DEFAULT '',
    marital_status    TEXT NOT NULL CHECK (marital_status IN ('single', 'married', 'divorced', 'widowed')),
    children_count    INTEGER NOT NULL DEFAULT 0 CHECK (children_count >= 0),
    category          TEXT NOT NULL CHECK (category IN ('orphans', 'a', 'b')),
    phone_number      TEXT NOT NULL DEFAULT '',
    address           TEXT NOT NULL DEFAULT '',
    notes             TEXT NOT NULL DEFAULT '',
    inactive          INTEGER NOT NULL DEFAULT 0,
    created_at        DATETIME NOT NULL,
    last_distribution DATETIME
);

CREATE TABLE IF NOT EXISTS items (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    type          TEXT NOT NULL CHECK (type IN ('food', 'non-food')),
    quantity      TEXT NOT NULL,
    unit          TEXT NOT NULL DEFAULT '',
    minimum_level TEXT NOT NULL,
    last_updated  DATETIME NOT NULL,
    notes         TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS item_images (
    item_id    TEXT PRIMARY KEY,
    image      BLOB NOT NULL,
    thumbnail  BLOB NOT NULL,
    image_mime TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS distributions (
    id             TEXT PRIMARY KEY,
    beneficiary_id TEXT NOT NULL,
    date           DATETIME NOT NULL,
    notes          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS distribution_lines (
    distribution_id TEXT NOT NULL REFERENCES distributions(id) ON DELETE CASCADE,
    position        INTEGER NOT NULL,
    item_id         TEXT NOT NULL,
    item_name       TEXT NOT NULL,
    quantity        TEXT NOT NULL,
    unit            TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (distribution_id, position)
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
