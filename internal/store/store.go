// Package store is the SQLite persistence layer: parsed part records and
// the feedback audit trail live in one database file. The parser itself
// never touches SQL; callers hand it Records and corrections.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ozparts/partlex/internal/parse"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.partlex/parts.db"

// DefaultBatchSize is the default batch size for bulk imports.
const DefaultBatchSize = 100

// Correction is one field-level fix a user applied to a stored part.
type Correction struct {
	Field string
	Value string
}

// Feedback is one audit row recording a correction.
type Feedback struct {
	ID               int64
	PartID           int64
	FieldName        string
	OriginalValue    string
	CorrectedValue   string
	FeedbackType     string
	ConfidenceImpact float64
	CreatedAt        string
}

// Store persists parsed parts and their correction history.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the parts database at path. Pass
// ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path == "" {
		path = expandPath(DefaultDBPath)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, dbPath: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// partColumns is the insert column list shared by AddPart and AddPartBatch.
const partColumns = `part_name, part_name_normalized, car_make, car_model,
	year_from, year_to, category, category_specific, engine_code,
	engine_displacement, location, side, drive_type, dimensions, part_number,
	technical_specs, compatibility, additional_info, confidence_score,
	confidence_factors, extraction_method`

const partPlaceholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

func partArgs(r *parse.Record) []any {
	return []any{
		r.PartName, r.PartNameNormalized,
		nullStr(r.CarMake), nullStr(r.CarModel),
		nullInt(r.YearFrom), nullInt(r.YearTo),
		nullStr(r.Category), nullStr(r.CategorySpecific),
		nullStr(r.EngineCode), nullStr(r.EngineDisplacement),
		nullStr(r.Location), nullStr(r.Side),
		nullStr(r.DriveType), nullStr(r.Dimensions), nullStr(r.PartNumber),
		nullStr(r.TechnicalSpecs), nullStr(r.Compatibility), nullStr(r.AdditionalInfo),
		r.ConfidenceScore, nullStr(r.ConfidenceFactors), r.ExtractionMethod,
	}
}

// AddPart inserts one parsed record and returns its id.
func (s *Store) AddPart(ctx context.Context, r *parse.Record) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO parts (`+partColumns+`) VALUES (`+partPlaceholders+`)`,
		partArgs(r)...)
	if err != nil {
		return 0, fmt.Errorf("inserting part: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading insert id: %w", err)
	}
	return id, nil
}

// AddPartBatch inserts records inside one transaction and returns their
// ids, in order.
func (s *Store) AddPartBatch(ctx context.Context, recs []*parse.Record) ([]int64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO parts (`+partColumns+`) VALUES (`+partPlaceholders+`)`)
	if err != nil {
		return nil, fmt.Errorf("preparing batch insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(recs))
	for _, r := range recs {
		res, err := stmt.ExecContext(ctx, partArgs(r)...)
		if err != nil {
			return nil, fmt.Errorf("inserting part %q: %w", r.PartName, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading insert id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch: %w", err)
	}
	return ids, nil
}

// GetPart loads one stored record by id.
func (s *Store) GetPart(ctx context.Context, id int64) (*parse.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, part_name, part_name_normalized, car_make, car_model,
			year_from, year_to, category, category_specific, engine_code,
			engine_displacement, location, side, drive_type, dimensions,
			part_number, technical_specs, compatibility, additional_info,
			confidence_score, confidence_factors, extraction_method
		FROM parts WHERE id = ?`, id)

	var r parse.Record
	var (
		carMake, carModel, category, categorySpecific    sql.NullString
		engineCode, engineDisplacement, location, side   sql.NullString
		driveType, dimensions, partNumber, techSpecs     sql.NullString
		compatibility, additionalInfo, confidenceFactors sql.NullString
		yearFrom, yearTo                                 sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.PartName, &r.PartNameNormalized, &carMake, &carModel,
		&yearFrom, &yearTo, &category, &categorySpecific, &engineCode,
		&engineDisplacement, &location, &side, &driveType, &dimensions,
		&partNumber, &techSpecs, &compatibility, &additionalInfo,
		&r.ConfidenceScore, &confidenceFactors, &r.ExtractionMethod)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("part %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading part %d: %w", id, err)
	}

	r.CarMake = carMake.String
	r.CarModel = carModel.String
	r.YearFrom = int(yearFrom.Int64)
	r.YearTo = int(yearTo.Int64)
	r.Category = category.String
	r.CategorySpecific = categorySpecific.String
	r.EngineCode = engineCode.String
	r.EngineDisplacement = engineDisplacement.String
	r.Location = location.String
	r.Side = side.String
	r.DriveType = driveType.String
	r.Dimensions = dimensions.String
	r.PartNumber = partNumber.String
	r.TechnicalSpecs = techSpecs.String
	r.Compatibility = compatibility.String
	r.AdditionalInfo = additionalInfo.String
	r.ConfidenceFactors = confidenceFactors.String
	return &r, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
