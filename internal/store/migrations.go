package store

import "fmt"

// bootstrapDDL creates the schema. Statements are idempotent so migrate can
// run on every open.
var bootstrapDDL = []string{
	`CREATE TABLE IF NOT EXISTS parts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		part_name TEXT NOT NULL,
		part_name_normalized TEXT,
		car_make TEXT,
		car_model TEXT,
		year_from INTEGER,
		year_to INTEGER,
		category TEXT,
		category_specific TEXT,
		engine_code TEXT,
		engine_displacement TEXT,
		location TEXT,
		side TEXT,
		drive_type TEXT,
		dimensions TEXT,
		part_number TEXT,
		technical_specs TEXT,
		compatibility TEXT,
		additional_info TEXT,
		confidence_score REAL,
		confidence_factors TEXT,
		extraction_method TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_parts_make_model ON parts(car_make, car_model)`,
	`CREATE INDEX IF NOT EXISTS idx_parts_category ON parts(category)`,
	`CREATE INDEX IF NOT EXISTS idx_parts_years ON parts(year_from, year_to)`,
	`CREATE INDEX IF NOT EXISTS idx_parts_part_number ON parts(part_number)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		part_id INTEGER,
		field_name TEXT,
		original_value TEXT,
		corrected_value TEXT,
		feedback_type TEXT,
		confidence_impact REAL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (part_id) REFERENCES parts(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_part ON feedback(part_id)`,
}

func (s *Store) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range bootstrapDDL {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return tx.Commit()
}
