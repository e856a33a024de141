package journal

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goodsign/monday"
)

// mondayLocale maps a configured locale onto a monday locale. Anything
// that is not English is rendered in German.
func mondayLocale(locale string) monday.Locale {
	locale = strings.ToLower(strings.ReplaceAll(locale, "-", "_"))
	switch locale {
	case "en_gb":
		return monday.LocaleEnGB
	case "en", "en_us":
		return monday.LocaleEnUS
	}
	if strings.HasPrefix(locale, "en_") {
		return monday.LocaleEnUS
	}
	return monday.LocaleDeDE
}

type labels struct {
	empty, when, student, status, took, program string
	rejected                                    string
}

var (
	germanLabels = labels{
		empty: "Keine Läufe aufgezeichnet.", when: "Zeitpunkt", student: "Matrikel",
		status: "Status", took: "Dauer", program: "Programm", rejected: "abgelehnt",
	}
	englishLabels = labels{
		empty: "No runs recorded.", when: "Started", student: "Student",
		status: "Status", took: "Took", program: "Program", rejected: "rejected",
	}
)

// Render writes entries as an aligned table with dates in the given locale.
func Render(w io.Writer, entries []Entry, locale string) error {
	loc := mondayLocale(locale)
	l, layout := germanLabels, "Mon, 02. Jan 2006 15:04"
	if loc == monday.LocaleEnUS || loc == monday.LocaleEnGB {
		l, layout = englishLabels, "Mon, Jan 2 2006 15:04"
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, l.empty)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.when, l.student, l.status, l.took, l.program)
	for _, e := range entries {
		student := "-"
		if e.Matrikelnummer != 0 {
			student = fmt.Sprint(e.Matrikelnummer)
		}
		status := fmt.Sprint(e.Status)
		if e.Failed() {
			status = l.rejected
			if !strings.HasPrefix(e.Error, "RUN-") {
				status = firstLine(e.Error)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			monday.Format(e.Started, layout, loc),
			student,
			status,
			e.Duration.Round(time.Millisecond),
			e.Program,
		)
	}
	return tw.Flush()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
