package db

import (
	"fmt"

	"gorm.io/gorm"
)

var postgresMigrations = []string{
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'gig_status') THEN
			CREATE TYPE gig_status AS ENUM ('open', 'assigned');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'bid_status') THEN
			CREATE TYPE bid_status AS ENUM ('pending', 'hired', 'rejected');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS gigs (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL,
		title VARCHAR(200) NOT NULL,
		description TEXT NOT NULL,
		budget NUMERIC(14,2) NOT NULL CHECK (budget > 0),
		status gig_status NOT NULL DEFAULT 'open',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS bids (
		id UUID PRIMARY KEY,
		gig_id UUID NOT NULL REFERENCES gigs(id) ON DELETE CASCADE,
		freelancer_id UUID NOT NULL,
		message TEXT NOT NULL,
		price NUMERIC(14,2) NOT NULL CHECK (price > 0),
		status bid_status NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_gigs_status_created ON gigs (status, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_gigs_owner_id ON gigs (owner_id);`,
	`CREATE INDEX IF NOT EXISTS idx_bids_gig_status ON bids (gig_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_bids_freelancer_id ON bids (freelancer_id);`,
	// at most one hired bid per gig, whatever path wrote it
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bids_one_hired_per_gig ON bids (gig_id) WHERE status = 'hired';`,
}

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS gigs (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		budget REAL NOT NULL CHECK (budget > 0),
		status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'assigned')),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS bids (
		id TEXT PRIMARY KEY,
		gig_id TEXT NOT NULL REFERENCES gigs(id) ON DELETE CASCADE,
		freelancer_id TEXT NOT NULL,
		message TEXT NOT NULL,
		price REAL NOT NULL CHECK (price > 0),
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'hired', 'rejected')),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_gigs_status_created ON gigs (status, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_bids_gig_status ON bids (gig_id, status);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bids_one_hired_per_gig ON bids (gig_id) WHERE status = 'hired';`,
}

// Migrate applies the idempotent schema for driver.
func Migrate(db *gorm.DB, driver string) error {
	var statements []string
	switch driver {
	case DriverPostgres:
		statements = postgresMigrations
	case DriverSQLite:
		statements = sqliteMigrations
	default:
		return fmt.Errorf("no migrations for driver %q", driver)
	}

	for i, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
