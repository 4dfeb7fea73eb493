package store

import (
	"context"
	"database/sql"
	"fmt"
)

// correctableFields is the allow-list of columns a correction may touch.
// Field names are interpolated into SQL, so anything outside this set is
// rejected before the query is built.
var correctableFields = map[string]bool{
	"car_make":            true,
	"car_model":           true,
	"category":            true,
	"category_specific":   true,
	"year_from":           true,
	"year_to":             true,
	"engine_code":         true,
	"engine_displacement": true,
	"location":            true,
	"side":                true,
	"drive_type":          true,
	"dimensions":          true,
	"part_number":         true,
}

// CorrectableField reports whether corrections may target the field.
func CorrectableField(name string) bool {
	return correctableFields[name]
}

// ApplyCorrection updates a stored part with user corrections inside one
// transaction: each correction writes a feedback audit row carrying the
// value it replaced, then the part row is updated with the new values,
// confidence 1.0, and extraction method manual_correction. Returns the
// part's name and confidence factors as stored before the update, which
// the knowledge reconciliation step consumes.
func (s *Store) ApplyCorrection(ctx context.Context, partID int64, corrections []Correction) (partName, confidenceFactors string, err error) {
	if len(corrections) == 0 {
		return "", "", fmt.Errorf("no corrections given")
	}
	for _, c := range corrections {
		if !correctableFields[c.Field] {
			return "", "", fmt.Errorf("field %q is not correctable", c.Field)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("beginning correction: %w", err)
	}
	defer tx.Rollback()

	var factors sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT part_name, confidence_factors FROM parts WHERE id = ?`, partID).
		Scan(&partName, &factors)
	if err == sql.ErrNoRows {
		return "", "", fmt.Errorf("part %d not found", partID)
	}
	if err != nil {
		return "", "", fmt.Errorf("loading part %d: %w", partID, err)
	}

	setClause := ""
	args := make([]any, 0, len(corrections)+3)
	for _, c := range corrections {
		var original sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT `+c.Field+` FROM parts WHERE id = ?`, partID).Scan(&original)
		if err != nil {
			return "", "", fmt.Errorf("reading original %s: %w", c.Field, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO feedback (part_id, field_name, original_value, corrected_value, feedback_type)
			VALUES (?, ?, ?, ?, 'correction')`,
			partID, c.Field, original.String, c.Value)
		if err != nil {
			return "", "", fmt.Errorf("recording feedback for %s: %w", c.Field, err)
		}

		setClause += c.Field + " = ?, "
		args = append(args, c.Value)
	}

	args = append(args, 1.0, "manual_correction", partID)
	_, err = tx.ExecContext(ctx, `
		UPDATE parts SET `+setClause+`
			updated_at = CURRENT_TIMESTAMP,
			confidence_score = ?,
			extraction_method = ?
		WHERE id = ?`, args...)
	if err != nil {
		return "", "", fmt.Errorf("updating part %d: %w", partID, err)
	}

	if err := tx.Commit(); err != nil {
		return "", "", fmt.Errorf("committing correction: %w", err)
	}
	return partName, factors.String, nil
}

// FeedbackForPart lists the audit rows recorded for one part, oldest first.
func (s *Store) FeedbackForPart(ctx context.Context, partID int64) ([]Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, part_id, field_name, original_value, corrected_value,
			feedback_type, COALESCE(confidence_impact, 0), created_at
		FROM feedback WHERE part_id = ? ORDER BY id`, partID)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var f Feedback
		var original, corrected sql.NullString
		if err := rows.Scan(&f.ID, &f.PartID, &f.FieldName, &original, &corrected,
			&f.FeedbackType, &f.ConfidenceImpact, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback row: %w", err)
		}
		f.OriginalValue = original.String
		f.CorrectedValue = corrected.String
		out = append(out, f)
	}
	return out, rows.Err()
}
