// Package parse is the extraction engine: it turns one raw Hebrew part
// listing line into a structured record with a confidence score. Field
// extractors run layered tiers (exact dictionary hits first, statistical
// fallbacks last) and every tier labels its output with the method that
// produced it.
package parse

import "time"

// Record is the structured result of parsing one listing line. JSON tags
// match the persisted column and export contract.
type Record struct {
	ID                 int64   `json:"id,omitempty"`
	PartName           string  `json:"part_name"`
	PartNameNormalized string  `json:"part_name_normalized"`
	CarMake            string  `json:"car_make,omitempty"`
	CarModel           string  `json:"car_model,omitempty"`
	YearFrom           int     `json:"year_from,omitempty"`
	YearTo             int     `json:"year_to,omitempty"`
	Category           string  `json:"category,omitempty"`
	CategorySpecific   string  `json:"category_specific,omitempty"`
	EngineCode         string  `json:"engine_code,omitempty"`
	EngineDisplacement string  `json:"engine_displacement,omitempty"`
	Location           string  `json:"location,omitempty"`
	Side               string  `json:"side,omitempty"`
	DriveType          string  `json:"drive_type,omitempty"`
	Dimensions         string  `json:"dimensions,omitempty"`
	PartNumber         string  `json:"part_number,omitempty"`
	TechnicalSpecs     string  `json:"technical_specs,omitempty"`
	Compatibility      string  `json:"compatibility,omitempty"`
	AdditionalInfo     string  `json:"additional_info,omitempty"`
	ConfidenceScore    float64 `json:"confidence_score"`
	ConfidenceFactors  string  `json:"confidence_factors,omitempty"`
	ExtractionMethod   string  `json:"extraction_method"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Extraction is one field extractor's outcome: the value, the tier that
// produced it, and that tier's confidence. A zero Extraction means no tier
// matched.
type Extraction struct {
	Value      string
	Confidence float64
	Method     string
}

// Found reports whether any tier produced a value.
func (e Extraction) Found() bool {
	return e.Value != ""
}
