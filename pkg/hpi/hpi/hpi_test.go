package hpi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/hpi-lang/hpi/pkg/hpi/ast"
	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
	"github.com/hpi-lang/hpi/pkg/hpi/httpclient"
)

func str(s string) ast.Expression { return &ast.StringLiteral{Value: s} }

func call(name string, args ...ast.Expression) ast.Expression {
	return &ast.CallExpression{Function: name, Arguments: args}
}

func stmt(e ast.Expression) ast.Statement { return &ast.ExpressionStatement{Expression: e} }

func program(studium ...ast.Statement) *ast.Program {
	return &ast.Program{
		Bewerbung:     &ast.Block{Result: str("Ich möchte studieren.")},
		Einschreibung: &ast.Block{},
		Studium:       &ast.Block{Statements: studium},
	}
}

func run(t *testing.T, p *ast.Program, opts ...Option) (string, int64, error) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithLoopDelay(0)}, opts...)
	status, err := Execute(p, map[string]string{"NUTZER": "ada"}, &out, nil, opts...)
	return out.String(), status, err
}

func TestExecuteEmit(t *testing.T) {
	p := program(stmt(call("Drucke", &ast.IntegerLiteral{Value: 1}, &ast.FloatLiteral{Value: 2.5}, str("hi"))))
	out, status, err := run(t, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != 0 || out != "1 2.5 hi\n" {
		t.Errorf("got status %d output %q", status, out)
	}
}

func TestExecuteRejection(t *testing.T) {
	p := &ast.Program{
		Bewerbung:     &ast.Block{Result: str("")},
		Einschreibung: &ast.Block{Statements: []ast.Statement{stmt(call("Drucke", str("Einschreibung")))}},
		Studium:       &ast.Block{Statements: []ast.Statement{stmt(call("Drucke", str("Studium")))}},
	}

	out, _, err := run(t, p)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	want := "Ihre Bewerbung hat das HPI leider nicht überzeugt.\n Ist Ihr Bewerbungsschreiben vielleicht leer?"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if out != "" {
		t.Errorf("later phases ran: %q", out)
	}
}

func TestExecuteDefect(t *testing.T) {
	p := program(stmt(call("Drucke", &ast.Identifier{Value: "Nutzr"})))
	_, status, err := run(t, p)

	var defect *perrors.Defect
	if !errors.As(err, &defect) {
		t.Fatalf("expected defect error, got %v", err)
	}
	if status != 0 || !strings.Contains(defect.Message, "Nutzr") {
		t.Errorf("unexpected defect %q (status %d)", defect.Message, status)
	}
}

func TestExecuteRejectionInEnglish(t *testing.T) {
	p := &ast.Program{Bewerbung: &ast.Block{Result: str("")}}
	_, _, err := run(t, p, WithLanguage(language.English))
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "Unfortunately") {
		t.Errorf("expected English message, got %q", err.Error())
	}
}

func ident(name string) ast.Expression { return &ast.Identifier{Value: name} }

func TestExecuteJSONRoundTrip(t *testing.T) {
	parsed := call("Zergliedere_JSON", str(`{"name": "Ada", "jahre": [1815, 1852.5]}`))
	p := program(
		&ast.LetStatement{Name: "daten", Value: parsed},
		stmt(call("Drucke", &ast.CallExpression{
			Callee:    &ast.MemberExpression{Object: ident("daten"), Member: "Nehmen"},
			Arguments: []ast.Expression{str("name")},
		})),
		stmt(call("Drucke", call("Gliedere_JSON", ident("daten")))),
	)

	out, _, err := run(t, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Ada\n" + `{"jahre":[1815,1852.5],"name":"Ada"}` + "\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestExecuteStructuredTextErrors(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expression
		code string
	}{
		{"malformed", call("Zergliedere_JSON", str(`{"a":`)), "JSON-0001"},
		{"pointer", call("Gliedere_JSON", &ast.PrefixExpression{Operator: "&", Right: ident("x")}), "JSON-0002"},
		{"format mismatch", call("Formatiere", str("{} {}"), &ast.IntegerLiteral{Value: 1}), "FMT-0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := program(
				&ast.LetStatement{Name: "x", Value: &ast.IntegerLiteral{Value: 1}},
				stmt(tt.expr),
			)
			_, _, err := run(t, p)
			var hpiErr *perrors.HPIError
			if !errors.As(err, &hpiErr) {
				t.Fatalf("expected HPIError, got %v", err)
			}
			if hpiErr.Code != tt.code {
				t.Errorf("expected %s, got %s (%s)", tt.code, hpiErr.Code, hpiErr.Message)
			}
		})
	}
}

func TestExecuteFormat(t *testing.T) {
	p := program(stmt(call("Drucke", call("Formatiere",
		str("{} hat {:.1} Punkte"), str("Ada"), &ast.FloatLiteral{Value: 9.25}))))
	out, _, err := run(t, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Ada hat 9.2 Punkte\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestExecuteEnvironment(t *testing.T) {
	env := call("Umgebungsvariablen")
	p := program(stmt(call("Drucke", &ast.CallExpression{
		Callee:    &ast.MemberExpression{Object: env, Member: "Nehmen"},
		Arguments: []ast.Expression{str("NUTZER")},
	})))
	out, _, err := run(t, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ada\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestExecuteHttp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, r.Method+" "+r.Header.Get("X-Matrikel")+" "+string(body))
	}))
	defer server.Close()

	client, err := httpclient.New(httpclient.Options{})
	if err != nil {
		t.Fatal(err)
	}

	header := &ast.ObjectLiteral{Fields: []ast.ObjectField{
		{Key: "Schlüssel", Value: str("X-Matrikel")},
		{Key: "Wert", Value: str("4711")},
	}}
	p := program(
		&ast.LetStatement{Name: "antwort", Value: str("")},
		&ast.LetStatement{Name: "status", Value: call("Http", str("PUT"), str(server.URL), str("hallo"),
			&ast.ListLiteral{Elements: []ast.Expression{header}},
			&ast.PrefixExpression{Operator: "&", Right: ident("antwort")})},
		stmt(call("Drucke", ident("status"), ident("antwort"))),
	)

	var out bytes.Buffer
	if _, err := Execute(p, nil, &out, client, WithLoopDelay(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "418 PUT 4711 hallo\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestExecuteLogsPhases(t *testing.T) {
	recorder := &PhaseRecorder{}
	if _, _, err := run(t, program(), WithLogger(recorder)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := recorder.Messages()
	var started []string
	for _, line := range lines {
		if strings.HasSuffix(line, "beginnt") {
			started = append(started, strings.Fields(line)[1])
		}
	}
	if strings.Join(started, ",") != "Bewerbung,Einschreibung,Studium" {
		t.Errorf("unexpected phase log %q", lines)
	}
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	WriterLogger(&buf).Debugf("Phase %s", "Studium")
	if buf.String() != "[DEBUG] Phase Studium\n" {
		t.Errorf("unexpected log line %q", buf.String())
	}
}

func TestEnvironMap(t *testing.T) {
	env := EnvironMap([]string{"A=1", "B=x=y", "=C:=foo", "KAPUTT"})
	if len(env) != 2 || env["A"] != "1" || env["B"] != "x=y" {
		t.Errorf("unexpected map %v", env)
	}
}
