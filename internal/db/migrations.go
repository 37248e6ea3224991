package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS clients (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		full_name VARCHAR(200) NOT NULL,
		email VARCHAR(200),
		phone VARCHAR(50),
		address VARCHAR(500),
		city VARCHAR(100),
		post_code VARCHAR(20),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS quotes (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		number VARCHAR(64) NOT NULL,
		client_id UUID NOT NULL REFERENCES clients(id),
		status VARCHAR(20) NOT NULL DEFAULT 'draft',
		issue_date DATE NOT NULL,
		valid_until DATE,
		total_ht NUMERIC(18,2) NOT NULL DEFAULT 0,
		total_tva NUMERIC(18,2) NOT NULL DEFAULT 0,
		total_ttc NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_quote_number ON quotes (number);`,
	`CREATE INDEX IF NOT EXISTS idx_quotes_client_id ON quotes (client_id);`,
	`CREATE INDEX IF NOT EXISTS idx_quotes_status ON quotes (status);`,
	`CREATE TABLE IF NOT EXISTS quote_items (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		quote_id UUID NOT NULL REFERENCES quotes(id) ON DELETE CASCADE,
		service_ref VARCHAR(100),
		description VARCHAR(500) NOT NULL,
		quantity NUMERIC(12,3) NOT NULL DEFAULT 1,
		unit_price NUMERIC(18,2) NOT NULL,
		tax_rate NUMERIC(5,2) NOT NULL,
		position INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_quote_items_quote_id ON quote_items (quote_id);`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		number VARCHAR(64) NOT NULL,
		quote_id UUID REFERENCES quotes(id),
		client_id UUID NOT NULL REFERENCES clients(id),
		status VARCHAR(20) NOT NULL DEFAULT 'draft',
		issue_date DATE NOT NULL,
		due_date DATE,
		discount NUMERIC(18,2) NOT NULL DEFAULT 0,
		total_ht NUMERIC(18,2) NOT NULL DEFAULT 0,
		total_tva NUMERIC(18,2) NOT NULL DEFAULT 0,
		total_ttc NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_invoice_number ON invoices (number);`,
	// One invoice per quote, enforced at the storage layer on top of
	// the conversion service's transactional check.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_invoice_quote_id ON invoices (quote_id) WHERE quote_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_client_id ON invoices (client_id);`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices (status);`,
	`CREATE TABLE IF NOT EXISTS invoice_items (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		invoice_id UUID NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		service_ref VARCHAR(100),
		description VARCHAR(500) NOT NULL,
		quantity NUMERIC(12,3) NOT NULL DEFAULT 1,
		unit_price NUMERIC(18,2) NOT NULL,
		tax_rate NUMERIC(5,2) NOT NULL,
		position INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_items_invoice_id ON invoice_items (invoice_id);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
