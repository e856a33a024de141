package errors

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestNewRendersCatalogTemplate(t *testing.T) {
	err := New("CAST-0001", map[string]any{"From": "Zahl", "To": "Zeichenkette"})

	if err.Class != ClassCast {
		t.Errorf("expected class %q, got %q", ClassCast, err.Class)
	}
	want := "Invalide Typumwandlung während der Laufzeit: Der Datentyp `Zahl` kann nicht in `Zeichenkette` umgewandelt werden."
	if err.Message != want {
		t.Errorf("expected %q, got %q", want, err.Message)
	}
}

func TestNewInEnglish(t *testing.T) {
	err := NewIn(language.English, "INDEX-0001", map[string]any{"Index": -1})
	if err.Message != "illegal index: `-1`" {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestNewUnknownCode(t *testing.T) {
	err := New("NOPE-0001", map[string]any{"message": "custom"})
	if err.Message != "custom" {
		t.Errorf("expected custom message, got %q", err.Message)
	}
	if err.Class != ClassRun {
		t.Errorf("expected run class, got %q", err.Class)
	}
}

func TestSelectLanguage(t *testing.T) {
	tests := []struct {
		locale string
		want   language.Tag
	}{
		{"", language.German},
		{"de", language.German},
		{"de_AT", language.German},
		{"en", language.English},
		{"en-GB", language.English},
		{"fr", language.German},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			if got := SelectLanguage(tt.locale); got != tt.want {
				t.Errorf("SelectLanguage(%q) = %v, want %v", tt.locale, got, tt.want)
			}
		})
	}
}

func TestIsMatchesCode(t *testing.T) {
	a := New("ARITH-0001", map[string]any{"Left": 5, "Right": 0})
	b := New("ARITH-0001", nil)
	c := New("ARITH-0002", nil)

	if !a.Is(b) {
		t.Error("expected errors with the same code to match")
	}
	if a.Is(c) {
		t.Error("expected errors with different codes not to match")
	}
}

func TestPrettyString(t *testing.T) {
	err := New("RUN-0001", nil)
	pretty := err.PrettyString()
	if !strings.HasPrefix(pretty, "Laufzeitfehler [RUN-0001]:") {
		t.Errorf("unexpected header: %q", pretty)
	}
	if !strings.Contains(pretty, "Bewerbungsschreiben") {
		t.Errorf("expected message in output: %q", pretty)
	}
}

func TestFindClosestMatch(t *testing.T) {
	candidates := []string{"zaehler", "summe", "Matrikelnummer"}

	if got := FindClosestMatch("zaehlr", candidates); got != "zaehler" {
		t.Errorf("expected zaehler, got %q", got)
	}
	if got := FindClosestMatch("xyz", candidates); got != "" {
		t.Errorf("expected no match, got %q", got)
	}
}

func TestDefectf(t *testing.T) {
	defer func() {
		r := recover()
		d, ok := r.(*Defect)
		if !ok {
			t.Fatalf("expected *Defect panic, got %v", r)
		}
		if !strings.Contains(d.Error(), "kaputt 3") {
			t.Errorf("unexpected defect message %q", d.Error())
		}
	}()
	Defectf("kaputt %d", 3)
}
