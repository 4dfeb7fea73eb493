package rules

import (
	"regexp"
	"strconv"
	"strings"
)

// Validator accepts or rejects one regex match. m is the submatch slice:
// m[0] the full match, m[1:] the capture groups. Validators carry their
// parameters as struct fields so a compiled rule set is inspectable data,
// not a pile of closures.
type Validator interface {
	Validate(m []string) bool
}

// ExpandYear converts a two-digit year to four digits: values under 50 map
// to 2000+, the rest to 1900+. Four-digit years pass through.
func ExpandYear(y int) int {
	if y >= 100 {
		return y
	}
	if y < 50 {
		return 2000 + y
	}
	return 1900 + y
}

// YearValidator accepts a single captured year inside the plausible window
// [1950, CurrentYear+5] after two-digit expansion.
type YearValidator struct {
	CurrentYear int
}

func (v YearValidator) Validate(m []string) bool {
	if len(m) < 2 {
		return false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	y = ExpandYear(y)
	return 1950 <= y && y <= v.CurrentYear+5
}

// YearRangeValidator accepts a from-year with an optional to-year. The
// to-year, when present, must not precede the from-year.
type YearRangeValidator struct {
	CurrentYear int
}

func (v YearRangeValidator) Validate(m []string) bool {
	if len(m) < 2 {
		return false
	}
	from, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	from = ExpandYear(from)
	if from < 1950 || from > v.CurrentYear+5 {
		return false
	}
	if len(m) > 2 && m[2] != "" {
		to, err := strconv.Atoi(m[2])
		if err != nil {
			return false
		}
		to = ExpandYear(to)
		if to < from || to > v.CurrentYear+5 {
			return false
		}
	}
	return true
}

// RangeValidator accepts a captured decimal inside [Min, Max]. Used for
// engine displacement (0.6–8.0 liters).
type RangeValidator struct {
	Min, Max float64
}

func (v RangeValidator) Validate(m []string) bool {
	if len(m) < 2 {
		return false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return false
	}
	return v.Min <= f && f <= v.Max
}

// IntRangeValidator accepts a captured integer inside [Min, Max]. Group
// selects which capture holds the integer (brake disc sizes use group 1,
// Hyundai i-models group 2).
type IntRangeValidator struct {
	Min, Max int
	Group    int
}

func (v IntRangeValidator) Validate(m []string) bool {
	g := v.Group
	if g == 0 {
		g = 1
	}
	if len(m) <= g {
		return false
	}
	n, err := strconv.Atoi(m[g])
	if err != nil {
		return false
	}
	return v.Min <= n && n <= v.Max
}

var modelCodeRE = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ModelCodeValidator accepts alphanumeric model codes of plausible length.
type ModelCodeValidator struct{}

func (ModelCodeValidator) Validate(m []string) bool {
	if len(m) < 2 {
		return false
	}
	code := m[1]
	return len(code) >= 3 && len(code) <= 10 && modelCodeRE.MatchString(code)
}

// DriveTypeValidator accepts only the known drivetrain designations.
type DriveTypeValidator struct{}

var driveTypes = map[string]bool{
	"4X4": true, "4X2": true, "2X4": true,
	"AWD": true, "RWD": true, "FWD": true,
}

func (DriveTypeValidator) Validate(m []string) bool {
	if len(m) < 2 {
		return false
	}
	return driveTypes[strings.ToUpper(m[1])]
}

// ModelLister reports whether a make lists a model, both by English name.
// Satisfied by the knowledge-base index.
type ModelLister interface {
	HasModel(carMake, model string) bool
}

// MakeModelValidator accepts a combined make+model match only when the
// knowledge base actually links the pair.
type MakeModelValidator struct {
	Make   string
	Model  string
	Models ModelLister
}

func (v MakeModelValidator) Validate([]string) bool {
	return v.Models != nil && v.Models.HasModel(v.Make, v.Model)
}

// EngineCodeValidator accepts a match only while the code is still present
// in the knowledge base.
type EngineCodeValidator struct {
	Code  string
	Known map[string]bool
}

func (v EngineCodeValidator) Validate([]string) bool {
	return v.Known[v.Code]
}
