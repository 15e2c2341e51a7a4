package sheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fixed column layout of the billing spreadsheet (0-indexed). These indices
// are a contract with the upload template, not configuration.
const (
	colName      = 0
	colSpecialty = 1
	colUnit      = 2
	colGross     = 3
	colShare     = 4
	colFixed     = 5
	colTarget    = 6
	colAbsences  = 10
	colEmail     = 11
	colShift     = 12
	colNet       = 19
)

// Shift is a normalized work-shift code.
type Shift string

const (
	ShiftMorning   Shift = "MORNING"
	ShiftAfternoon Shift = "AFTERNOON"
	ShiftNight     Shift = "NIGHT"
	ShiftFull      Shift = "FULL"
	ShiftUndefined Shift = "UNDEFINED"
)

// shiftAliases maps accent-folded upper-case shift codes to normalized
// shifts. A row with no recognizable code keeps ShiftUndefined; it never
// falls back to ShiftFull.
var shiftAliases = map[string]Shift{
	"M":        ShiftMorning,
	"MANHA":    ShiftMorning,
	"T":        ShiftAfternoon,
	"TARDE":    ShiftAfternoon,
	"N":        ShiftNight,
	"NOITE":    ShiftNight,
	"I":        ShiftFull,
	"INTEGRAL": ShiftFull,
	"COMPLETO": ShiftFull,
}

// specialtyAliases expands the abbreviated specialty column. Unknown
// abbreviations pass through trimmed.
var specialtyAliases = map[string]string{
	"ACUP":    "Acupuntura",
	"FISIO":   "Fisioterapia",
	"PILATES": "Pilates",
	"RPG":     "RPG",
	"QUIRO":   "Quiropraxia",
	"MASSO":   "Massoterapia",
	"NUTRI":   "Nutrição",
	"PSICO":   "Psicologia",
	"ESTET":   "Estética",
}

// unitAliases expands the abbreviated unit column.
var unitAliases = map[string]string{
	"MATRIZ":     "Matriz",
	"FILIAL":     "Filial",
	"CENTRO":     "Centro",
	"ZN":         "Zona Norte",
	"ZS":         "Zona Sul",
	"VIEIRALVES": "Vieiralves",
	"CIDNOVA":    "Cidade Nova",
}

// shiftAnnotationRe matches a trailing "(tarde)"-style shift annotation in
// the name column.
var shiftAnnotationRe = regexp.MustCompile(`(?i)\(\s*(manh[ãa]|tarde|noite|integral|completo)\s*\)\s*$`)

// emailRe is a light sanity check; identity matching happens on the
// normalized form downstream.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Row is a typed, validated spreadsheet row. All downstream code operates on
// these named fields, never on raw cell indices.
type Row struct {
	Line      int // 1-based sheet row number, for error reporting
	Email     string
	Name      string
	Shift     Shift
	Specialty string
	Unit      string
	Gross     float64
	Share     float64
	Net       float64
	Fixed     bool
	Target    *float64 // nil means no target
	Absences  int
}

// RowValidationError reports a row that fails a hard field constraint.
type RowValidationError struct {
	Line   int
	Field  string
	Reason string
}

func (e *RowValidationError) Error() string {
	return fmt.Sprintf("row %d: invalid %s: %s", e.Line, e.Field, e.Reason)
}

// NormalizeRow converts one raw row into a Row. The second return value is
// false when the row is silently skipped (blank name, blank or sentinel or
// malformed email). A non-nil error is a *RowValidationError for rows that
// name a person but carry an unusable mandatory field.
func NormalizeRow(line int, cells []string) (*Row, bool, error) {
	name := cell(cells, colName)
	if name == "" {
		return nil, false, nil
	}

	email := NormalizeEmail(cell(cells, colEmail))
	if !ValidEmail(email) {
		return nil, false, nil
	}

	shift := resolveShift(cell(cells, colShift), name)
	displayName := stripShiftAnnotation(name)

	net, err := parseAmount(cell(cells, colNet))
	if err != nil {
		return nil, false, &RowValidationError{Line: line, Field: "net amount", Reason: err.Error()}
	}

	row := &Row{
		Line:      line,
		Email:     email,
		Name:      displayName,
		Shift:     shift,
		Specialty: resolveAlias(cell(cells, colSpecialty), specialtyAliases),
		Unit:      resolveAlias(cell(cells, colUnit), unitAliases),
		Gross:     parseAmountOrZero(cell(cells, colGross)),
		Share:     parseAmountOrZero(cell(cells, colShare)),
		Net:       net,
		Fixed:     parseFlag(cell(cells, colFixed)),
		Target:    parseTarget(cell(cells, colTarget)),
		Absences:  parseIntOrZero(cell(cells, colAbsences)),
	}
	return row, true, nil
}

// NormalizeEmail trims and lower-cases an email address. This is the
// identity-bearing form used for all collaborator matching.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidEmail reports whether a normalized email is usable as an identity
// key. The sentinel "np" ("não possui") and addresses without a proper
// domain are rejected.
func ValidEmail(email string) bool {
	if email == "" || email == "np" || email == "n/p" {
		return false
	}
	return emailRe.MatchString(email)
}

// FoldUpper strips diacritics and upper-cases a string for alias lookups.
func FoldUpper(s string) string {
	decomposed := norm.NFD.String(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// resolveShift normalizes the explicit shift column; when the column is
// empty or unknown it falls back to a shift annotation in the raw name.
func resolveShift(code, rawName string) Shift {
	if s, ok := shiftAliases[FoldUpper(code)]; ok {
		return s
	}
	if m := shiftAnnotationRe.FindStringSubmatch(rawName); m != nil {
		if s, ok := shiftAliases[FoldUpper(m[1])]; ok {
			return s
		}
	}
	return ShiftUndefined
}

// stripShiftAnnotation removes a trailing "(tarde)"-style annotation from
// the display name.
func stripShiftAnnotation(name string) string {
	return strings.TrimSpace(shiftAnnotationRe.ReplaceAllString(name, ""))
}

func resolveAlias(s string, table map[string]string) string {
	trimmed := strings.TrimSpace(s)
	if full, ok := table[FoldUpper(trimmed)]; ok {
		return full
	}
	return trimmed
}

// isTargetSentinel reports whether a cell carries the "no target" marker.
func isTargetSentinel(s string) bool {
	switch FoldUpper(s) {
	case "", "NP", "N/P":
		return true
	}
	return false
}

// parseAmount parses a monetary cell. Both Brazilian ("1.234,56", optional
// "R$" prefix) and plain decimal forms are accepted.
func parseAmount(s string) (float64, error) {
	cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if cleaned == "" {
		return 0, fmt.Errorf("empty value")
	}
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", strings.TrimSpace(s))
	}
	return v, nil
}

// parseAmountOrZero is for amounts the sheet is allowed to leave blank.
func parseAmountOrZero(s string) float64 {
	v, err := parseAmount(s)
	if err != nil {
		return 0
	}
	return v
}

// parseTarget maps the sentinel and unparseable values to "no target",
// never to zero.
func parseTarget(s string) *float64 {
	if isTargetSentinel(s) {
		return nil
	}
	v, err := parseAmount(s)
	if err != nil {
		return nil
	}
	return &v
}

func parseFlag(s string) bool {
	switch FoldUpper(s) {
	case "1", "S", "SIM", "X", "TRUE", "VERDADEIRO":
		return true
	}
	return false
}

func parseIntOrZero(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}
