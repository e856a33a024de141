// Package errors provides structured error types for the hpi interpreter.
//
// HPIError is the single error type surfaced by a run. Messages come from a
// catalog of codes with text/template messages in German (the language of
// the programs) and English.
package errors

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/text/language"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassArithmetic ErrorClass = "arithmetic" // Division, remainder, shifts
	ClassCast       ErrorClass = "cast"       // Runtime type conversions
	ClassIndex      ErrorClass = "index"      // List indexing
	ClassFormat     ErrorClass = "format"     // Text formatting
	ClassJSON       ErrorClass = "json"       // Structured text codec
	ClassNetwork    ErrorClass = "network"    // HTTP
	ClassPlatform   ErrorClass = "platform"   // Unsupported host features
	ClassIO         ErrorClass = "io"         // Output sink
	ClassRun        ErrorClass = "run"        // Driver level failures
)

// HPIError represents a fatal runtime error.
type HPIError struct {
	Class   ErrorClass     `json:"class"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *HPIError) Error() string {
	return e.String()
}

// String returns the message followed by indented hints.
func (e *HPIError) String() string {
	var sb strings.Builder

	sb.WriteString(e.Message)
	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *HPIError) PrettyString() string {
	var sb strings.Builder

	sb.WriteString("Laufzeitfehler")
	if e.Code != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Code)
		sb.WriteString("]")
	}
	sb.WriteString(":\n  ")
	sb.WriteString(strings.ReplaceAll(e.Message, "\n", "\n  "))

	for _, hint := range e.Hints {
		sb.WriteString("\n  hint: ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// Is reports whether target carries the same catalog code.
func (e *HPIError) Is(target error) bool {
	t, ok := target.(*HPIError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass
	Template string // German message template
	English  string // English message template
	Hints    []string
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Arithmetic errors (ARITH-0xxx)
	// ========================================
	"ARITH-0001": {
		Class:    ClassArithmetic,
		Template: "Division durch Null: `{{.Left}} / {{.Right}}`",
		English:  "division by zero: `{{.Left}} / {{.Right}}`",
	},
	"ARITH-0002": {
		Class:    ClassArithmetic,
		Template: "Rest einer Division durch Null: `{{.Left}} % {{.Right}}`",
		English:  "remainder by zero: `{{.Left}} % {{.Right}}`",
	},
	"ARITH-0003": {
		Class:    ClassArithmetic,
		Template: "Ungültige Verschiebung um `{{.Right}}` Bits: erlaubt sind 0 bis 63",
		English:  "invalid shift amount `{{.Right}}`: must be between 0 and 63",
	},

	// ========================================
	// Cast errors (CAST-0xxx)
	// ========================================
	"CAST-0001": {
		Class:    ClassCast,
		Template: "Invalide Typumwandlung während der Laufzeit: Der Datentyp `{{.From}}` kann nicht in `{{.To}}` umgewandelt werden.",
		English:  "invalid runtime cast: a value of type `{{.From}}` cannot be converted to `{{.To}}`",
	},
	"CAST-0002": {
		Class:    ClassCast,
		Template: "Zeichenkettenverarbeitungsfehler in Zeichenkette `{{.Input}}`: {{.Reason}}",
		English:  "string conversion error in `{{.Input}}`: {{.Reason}}",
	},

	// ========================================
	// Index errors (INDEX-0xxx)
	// ========================================
	"INDEX-0001": {
		Class:    ClassIndex,
		Template: "Illegale Indizierung mittels Index: `{{.Index}}`",
		English:  "illegal index: `{{.Index}}`",
	},
	"INDEX-0002": {
		Class:    ClassIndex,
		Template: "Index `{{.Index}}` liegt außerhalb der Liste der Länge {{.Length}}",
		English:  "index `{{.Index}}` out of range for list of length {{.Length}}",
	},

	// ========================================
	// Structured text errors (JSON-0xxx)
	// ========================================
	"JSON-0001": {
		Class:    ClassJSON,
		Template: "Ungültiges JSON: {{.Reason}}",
		English:  "invalid JSON: {{.Reason}}",
	},
	"JSON-0002": {
		Class:    ClassJSON,
		Template: "Der Wert kann nicht als JSON dargestellt werden: {{.Reason}}",
		English:  "value cannot be represented as JSON: {{.Reason}}",
	},

	// ========================================
	// Format errors (FMT-0xxx)
	// ========================================
	"FMT-0001": {
		Class:    ClassFormat,
		Template: "Formatierungsfehler: {{.Reason}}",
		English:  "format error: {{.Reason}}",
	},

	// ========================================
	// Network errors (HTTP-0xxx)
	// ========================================
	"HTTP-0001": {
		Class:    ClassNetwork,
		Template: "HTTP-Anfrage fehlgeschlagen: {{.Reason}}",
		English:  "HTTP request failed: {{.Reason}}",
	},

	// ========================================
	// Platform errors (SLEEP-0xxx)
	// ========================================
	"SLEEP-0001": {
		Class:    ClassPlatform,
		Template: "Im Web wird nicht geschlafen!",
		English:  "sleeping is not supported on this platform",
	},

	// ========================================
	// IO errors (IO-0xxx)
	// ========================================
	"IO-0001": {
		Class:    ClassIO,
		Template: "Ausgabe fehlgeschlagen: {{.Reason}}",
		English:  "writing output failed: {{.Reason}}",
	},

	// ========================================
	// Run errors (RUN-0xxx)
	// ========================================
	"RUN-0001": {
		Class:    ClassRun,
		Template: "Ihre Bewerbung hat das HPI leider nicht überzeugt.\n Ist Ihr Bewerbungsschreiben vielleicht leer?",
		English:  "Unfortunately your application did not convince the HPI.\n Is your cover letter empty?",
	},
}

var supported = []language.Tag{language.German, language.English}

var matcher = language.NewMatcher(supported)

// SelectLanguage picks the catalog language closest to the given locale
// ("de", "en-GB", "de_AT", ...). Unknown or empty locales yield German.
func SelectLanguage(locale string) language.Tag {
	if locale == "" {
		return language.German
	}
	tag, _ := language.MatchStrings(matcher, strings.ReplaceAll(locale, "_", "-"))
	base, _ := tag.Base()
	if base.String() == "en" {
		return language.English
	}
	return language.German
}

// New creates an HPIError from the catalog using German messages.
func New(code string, data map[string]any) *HPIError {
	return NewIn(language.German, code, data)
}

// NewIn creates an HPIError from the catalog in the given language.
// If the code is not found, creates a generic error with the message.
func NewIn(lang language.Tag, code string, data map[string]any) *HPIError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &HPIError{
			Class:   ClassRun,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	tmpl := def.Template
	if lang == language.English && def.English != "" {
		tmpl = def.English
	}
	msg := renderTemplate(tmpl, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &HPIError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions for defect reports
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns the best match if the distance is within the threshold, otherwise empty string.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range sorted {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	// Short words (1-3): max 1 edit, medium (4-6): 2, longer: 3
	threshold := 1
	if len(input) >= 4 && len(input) <= 6 {
		threshold = 2
	} else if len(input) >= 7 {
		threshold = 3
	}

	if bestDistance <= 0 || bestDistance > threshold {
		return ""
	}

	return bestMatch
}

// Defect describes a violated front-end guarantee. It is raised with panic,
// never returned: a defect means the tree was not validated.
type Defect struct {
	Message string
}

func (d *Defect) Error() string {
	return "interner Fehler (Defekt): " + d.Message
}

// Defectf panics with a formatted Defect.
func Defectf(format string, a ...any) {
	panic(&Defect{Message: fmt.Sprintf(format, a...)})
}
