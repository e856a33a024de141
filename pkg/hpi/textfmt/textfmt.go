// Package textfmt renders templates for the Formatiere builtin.
//
// A template consumes one value per placeholder:
//
//	{}      the value's display form
//	{:.N}   a Fließkommazahl (or Zahl) with N decimals
//	{{ }}   literal braces
package textfmt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hpi-lang/hpi/pkg/hpi/evaluator"
)

// Formatter implements evaluator.TextFormatter.
type Formatter struct{}

// Format fills the placeholders of template with values in order.
func (Formatter) Format(template string, values []evaluator.Value) (string, error) {
	var out strings.Builder
	next := 0

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			out.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			out.WriteByte('}')
			i++
		case c == '}':
			return "", fmt.Errorf("einzelne `}` an Position %d", i)
		case c == '{':
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("nicht geschlossener Platzhalter an Position %d", i)
			}
			verb := template[i+1 : i+end]
			if next >= len(values) {
				return "", fmt.Errorf("zu wenige Werte: Platzhalter %d hat keinen Wert", next+1)
			}
			rendered, err := render(verb, values[next])
			if err != nil {
				return "", err
			}
			out.WriteString(rendered)
			next++
			i += end
		default:
			out.WriteByte(c)
		}
	}

	if next != len(values) {
		return "", fmt.Errorf("zu viele Werte: %d Platzhalter, %d Werte", next, len(values))
	}
	return out.String(), nil
}

func render(verb string, v evaluator.Value) (string, error) {
	switch v.(type) {
	case *evaluator.List, *evaluator.Object, *evaluator.Record, *evaluator.Pointer, *evaluator.BuiltinFunction:
		return "", fmt.Errorf("der Datentyp `%s` kann nicht formatiert werden", evaluator.TypeOf(v))
	}

	if verb == "" {
		return v.Inspect(), nil
	}
	if !strings.HasPrefix(verb, ":.") {
		return "", fmt.Errorf("unbekannter Platzhalter `{%s}`", verb)
	}

	precision, err := strconv.Atoi(verb[2:])
	if err != nil || precision < 0 {
		return "", fmt.Errorf("ungültige Genauigkeit in `{%s}`", verb)
	}

	switch n := v.(type) {
	case *evaluator.Float:
		return strconv.FormatFloat(n.Value, 'f', precision, 64), nil
	case *evaluator.Int:
		return strconv.FormatFloat(float64(n.Value), 'f', precision, 64), nil
	}
	return "", fmt.Errorf("Genauigkeit für `%s` nicht möglich", evaluator.TypeOf(v))
}
