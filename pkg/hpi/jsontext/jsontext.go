// Package jsontext converts between JSON text and interpreter values.
//
// Objects decode to records (Speicherbox), arrays to lists, integral numbers
// to Zahl and all other numbers to Fließkommazahl.
package jsontext

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/hpi-lang/hpi/pkg/hpi/ast"
	"github.com/hpi-lang/hpi/pkg/hpi/evaluator"
)

var api = jsoniter.Config{
	UseNumber:              true,
	SortMapKeys:            true,
	EscapeHTML:             false,
	ValidateJsonRawMessage: true,
}.Froze()

// Codec implements evaluator.StructuredText.
type Codec struct{}

// Deserialize parses text into a value.
func (Codec) Deserialize(text string) (evaluator.Value, error) {
	var raw any
	if err := api.UnmarshalFromString(text, &raw); err != nil {
		return nil, fmt.Errorf("%s", describe(err))
	}
	return fromJSON(raw)
}

// Serialize renders v as compact JSON with sorted keys.
func (Codec) Serialize(v evaluator.Value) (string, error) {
	raw, err := toJSON(v)
	if err != nil {
		return "", err
	}
	return api.MarshalToString(raw)
}

func fromJSON(raw any) (evaluator.Value, error) {
	switch v := raw.(type) {
	case nil:
		return evaluator.UNIT, nil
	case bool:
		if v {
			return evaluator.TRUE, nil
		}
		return evaluator.FALSE, nil
	case string:
		return &evaluator.String{Value: v}, nil
	case json.Number:
		return fromNumber(v)
	case []any:
		elements := make([]evaluator.Value, len(v))
		for i, el := range v {
			val, err := fromJSON(el)
			if err != nil {
				return nil, err
			}
			elements[i] = val
		}
		return &evaluator.List{Elements: elements}, nil
	case map[string]any:
		fields := make(map[string]evaluator.Value, len(v))
		for k, el := range v {
			val, err := fromJSON(el)
			if err != nil {
				return nil, err
			}
			fields[k] = val
		}
		return &evaluator.Record{Fields: fields}, nil
	}
	return nil, fmt.Errorf("unerwarteter JSON-Wert %T", raw)
}

func fromNumber(n json.Number) (evaluator.Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &evaluator.Int{Value: i}, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("ungültige Zahl %q", s)
	}
	return &evaluator.Float{Value: f}, nil
}

func toJSON(v evaluator.Value) (any, error) {
	switch v := v.(type) {
	case *evaluator.Unit:
		return nil, nil
	case *evaluator.Int:
		return v.Value, nil
	case *evaluator.Float:
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
			return nil, fmt.Errorf("%s ist keine endliche Zahl", v.Inspect())
		}
		return v.Value, nil
	case *evaluator.Bool:
		return v.Value, nil
	case *evaluator.Char:
		return string(rune(v.Value)), nil
	case *evaluator.String:
		return v.Value, nil
	case *evaluator.List:
		out := make([]any, len(v.Elements))
		for i, el := range v.Elements {
			raw, err := toJSON(el)
			if err != nil {
				return nil, err
			}
			out[i] = raw
		}
		return out, nil
	case *evaluator.Object:
		return mappingToJSON(v.Fields)
	case *evaluator.Record:
		return mappingToJSON(v.Fields)
	}
	return nil, fmt.Errorf("der Datentyp `%s` hat keine JSON-Darstellung", describeType(v))
}

func mappingToJSON(fields map[string]evaluator.Value) (any, error) {
	out := make(map[string]any, len(fields))
	for k, el := range fields {
		raw, err := toJSON(el)
		if err != nil {
			return nil, err
		}
		out[k] = raw
	}
	return out, nil
}

func describeType(v evaluator.Value) string {
	if _, ok := v.(*evaluator.BuiltinFunction); ok {
		return "eingebaute Funktion"
	}
	t := evaluator.TypeOf(v)
	if t.Kind == ast.TypeUnknown {
		return string(v.Type())
	}
	return t.String()
}

// describe trims the iterator context jsoniter appends to parse errors.
func describe(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ", error found in #"); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
