package store

import (
	"context"
	"fmt"
)

// Stats aggregates what the database knows about the inventory.
type Stats struct {
	TotalParts             int64
	PartsByMake            map[string]int64
	PartsByModel           map[string]int64
	PartsByCategory        map[string]int64
	PartsByDecade          map[string]int64
	ConfidenceDistribution map[string]int64
	ExtractionMethods      map[string]int64
	TotalCorrections       int64
	CorrectionsByField     map[string]int64
}

// Stats computes the aggregate statistics in one pass of grouped queries.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		PartsByMake:            map[string]int64{},
		PartsByModel:           map[string]int64{},
		PartsByCategory:        map[string]int64{},
		PartsByDecade:          map[string]int64{},
		ConfidenceDistribution: map[string]int64{"high": 0, "medium": 0, "low": 0},
		ExtractionMethods:      map[string]int64{},
		CorrectionsByField:     map[string]int64{},
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parts`).
		Scan(&st.TotalParts); err != nil {
		return nil, fmt.Errorf("counting parts: %w", err)
	}

	if err := s.grouped(ctx, st.PartsByMake, `
		SELECT car_make, COUNT(*) FROM parts
		WHERE car_make IS NOT NULL
		GROUP BY car_make ORDER BY COUNT(*) DESC LIMIT 20`); err != nil {
		return nil, err
	}
	if err := s.grouped(ctx, st.PartsByModel, `
		SELECT car_make || ' ' || car_model, COUNT(*) FROM parts
		WHERE car_make IS NOT NULL AND car_model IS NOT NULL
		GROUP BY car_make, car_model ORDER BY COUNT(*) DESC LIMIT 20`); err != nil {
		return nil, err
	}
	if err := s.grouped(ctx, st.PartsByCategory, `
		SELECT category, COUNT(*) FROM parts
		WHERE category IS NOT NULL
		GROUP BY category ORDER BY COUNT(*) DESC LIMIT 20`); err != nil {
		return nil, err
	}
	if err := s.grouped(ctx, st.PartsByDecade, `
		SELECT CASE
			WHEN year_from IS NULL THEN 'Unknown'
			WHEN year_from < 1990 THEN 'Before 1990'
			WHEN year_from < 2000 THEN '1990s'
			WHEN year_from < 2010 THEN '2000s'
			WHEN year_from < 2020 THEN '2010s'
			ELSE '2020s and newer'
		END AS decade, COUNT(*) FROM parts GROUP BY decade ORDER BY decade`); err != nil {
		return nil, err
	}
	if err := s.grouped(ctx, st.ConfidenceDistribution, `
		SELECT CASE
			WHEN confidence_score >= 0.8 THEN 'high'
			WHEN confidence_score >= 0.5 THEN 'medium'
			ELSE 'low'
		END AS level, COUNT(*) FROM parts GROUP BY level`); err != nil {
		return nil, err
	}
	if err := s.grouped(ctx, st.ExtractionMethods, `
		SELECT extraction_method, COUNT(*) FROM parts
		GROUP BY extraction_method ORDER BY COUNT(*) DESC`); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).
		Scan(&st.TotalCorrections); err != nil {
		return nil, fmt.Errorf("counting feedback: %w", err)
	}
	if err := s.grouped(ctx, st.CorrectionsByField, `
		SELECT field_name, COUNT(*) FROM feedback
		WHERE feedback_type = 'correction'
		GROUP BY field_name ORDER BY COUNT(*) DESC`); err != nil {
		return nil, err
	}
	return st, nil
}

// grouped runs a two-column (label, count) query into dst.
func (s *Store) grouped(ctx context.Context, dst map[string]int64, query string) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("stats query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		var count int64
		if err := rows.Scan(&label, &count); err != nil {
			return fmt.Errorf("scanning stats row: %w", err)
		}
		dst[label] = count
	}
	return rows.Err()
}
