package evaluator

import (
	"io"
	"strings"

	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
)

// getBuiltins returns the registry consulted before user functions.
func getBuiltins() map[string]BuiltinFunc {
	return map[string]BuiltinFunc{
		"Drucke":             builtinDrucke,
		"Aufgeben":           builtinAufgeben,
		"Zergliedere_JSON":   builtinZergliedereJSON,
		"Gliedere_JSON":      builtinGliedereJSON,
		"Formatiere":         builtinFormatiere,
		"Zeit":               builtinZeit,
		"Http":               builtinHttp,
		"Schlummere":         builtinSchlummere,
		"Geld":               builtinGeld,
		"Umgebungsvariablen": builtinUmgebungsvariablen,
	}
}

// Drucke writes its arguments space-joined and newline-terminated.
func builtinDrucke(in *Interpreter, args []Value) Value {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Inspect()
	}
	if _, err := io.WriteString(in.output, strings.Join(parts, " ")+"\n"); err != nil {
		return in.newError("IO-0001", map[string]any{"Reason": err.Error()})
	}
	return UNIT
}

func builtinAufgeben(in *Interpreter, args []Value) Value {
	expectArgs("Aufgeben", args, 1)
	return &ExitSignal{Code: asInt(args[0])}
}

func builtinZergliedereJSON(in *Interpreter, args []Value) Value {
	expectArgs("Zergliedere_JSON", args, 1)
	if in.json == nil {
		return in.newError("JSON-0001", map[string]any{"Reason": "kein JSON-Verarbeiter konfiguriert"})
	}
	val, err := in.json.Deserialize(asString(args[0]))
	if err != nil {
		return in.newError("JSON-0001", map[string]any{"Reason": err.Error()})
	}
	return val
}

func builtinGliedereJSON(in *Interpreter, args []Value) Value {
	expectArgs("Gliedere_JSON", args, 1)
	if in.json == nil {
		return in.newError("JSON-0002", map[string]any{"Reason": "kein JSON-Verarbeiter konfiguriert"})
	}
	text, err := in.json.Serialize(args[0])
	if err != nil {
		return in.newError("JSON-0002", map[string]any{"Reason": err.Error()})
	}
	return &String{Value: text}
}

func builtinFormatiere(in *Interpreter, args []Value) Value {
	if len(args) == 0 {
		perrors.Defectf("Formatiere ohne Vorlage aufgerufen")
	}
	if in.formatter == nil {
		return in.newError("FMT-0001", map[string]any{"Reason": "kein Formatierer konfiguriert"})
	}
	text, err := in.formatter.Format(asString(args[0]), args[1:])
	if err != nil {
		return in.newError("FMT-0001", map[string]any{"Reason": err.Error()})
	}
	return &String{Value: text}
}

// Zeit reads the local wall clock. Wochentag counts from Monday = 0.
func builtinZeit(in *Interpreter, args []Value) Value {
	now := in.now()
	return &Object{Fields: map[string]Value{
		"Jahr":         &Int{Value: int64(now.Year())},
		"Monat":        &Int{Value: int64(now.Month())},
		"Kalendar_Tag": &Int{Value: int64(now.Day())},
		"Wochentag":    &Int{Value: int64((now.Weekday() + 6) % 7)},
		"Stunde":       &Int{Value: int64(now.Hour())},
		"Minute":       &Int{Value: int64(now.Minute())},
		"Sekunde":      &Int{Value: int64(now.Second())},
	}}
}

// Http takes method, url, body, a list of header objects and a pointer that
// receives the response body. It returns the status code.
func builtinHttp(in *Interpreter, args []Value) Value {
	expectArgs("Http", args, 5)

	method := asString(args[0])
	url := asString(args[1])
	body := asString(args[2])

	headerList, ok := args[3].(*List)
	if !ok {
		perrors.Defectf("Http: Liste von Kopfzeilen erwartet, %s erhalten", TypeOf(args[3]))
	}
	headers := make(map[string]string, len(headerList.Elements))
	for _, el := range headerList.Elements {
		obj, ok := el.(*Object)
		if !ok {
			perrors.Defectf("Http: Kopfzeile ist %s", TypeOf(el))
		}
		headers[asString(obj.Fields["Schlüssel"])] = asString(obj.Fields["Wert"])
	}
	out := asPointer(args[4])

	if in.http == nil {
		return in.newError("HTTP-0001", map[string]any{"Reason": "kein HTTP-Client konfiguriert"})
	}
	status, respBody, err := in.http.Request(method, url, body, headers)
	if err != nil {
		return in.newError("HTTP-0001", map[string]any{"Reason": err.Error()})
	}

	out.Cell.Value = &String{Value: respBody}
	return &Int{Value: int64(status)}
}

func builtinSchlummere(in *Interpreter, args []Value) Value {
	expectArgs("Schlummere", args, 1)
	f, ok := args[0].(*Float)
	if !ok {
		perrors.Defectf("Schlummere: Fließkommazahl erwartet, %s erhalten", TypeOf(args[0]))
	}
	return in.sleepSeconds(f.Value)
}

func builtinGeld(in *Interpreter, args []Value) Value {
	return &String{Value: "Nun sind Sie reich, sie wurden gesponst!"}
}

// Umgebungsvariablen returns a fresh record of the process environment.
func builtinUmgebungsvariablen(in *Interpreter, args []Value) Value {
	fields := make(map[string]Value, len(in.environ))
	for k, v := range in.environ {
		fields[k] = &String{Value: v}
	}
	return &Record{Fields: fields}
}

func expectArgs(name string, args []Value, n int) {
	if len(args) != n {
		perrors.Defectf("%s erwartet %d Argumente, %d erhalten", name, n, len(args))
	}
}
