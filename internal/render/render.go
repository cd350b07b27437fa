// Package render prints sessions, comparisons and operation statuses to a
// terminal. All service text passes through Sanitize.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/workflow"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	label   = color.New(color.FgYellow)
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed)
	faint   = color.New(color.Faint)
)

const placeholder = "(vacío)"

// Session prints the three session fields.
func Session(w io.Writer, id string, s model.Session) {
	heading.Fprintf(w, "Sesión %s\n", Sanitize(id))
	section(w, "Caso de estudio", s.CaseStudy)
	section(w, "Análisis IA", s.AIAnalysis)
	section(w, "Análisis del auditor", s.UserAnalysis)
}

// Text prints one block of service text, in red when it is a failure marker.
func Text(w io.Writer, text string) {
	clean := Sanitize(text)
	if workflow.IsSentinel(clean) {
		bad.Fprintln(w, clean)
		return
	}
	fmt.Fprintln(w, clean)
}

// Failure prints a user-facing failure message.
func Failure(w io.Writer, message string) {
	bad.Fprintln(w, Sanitize(message))
}

// Generated prints the outcome of a generate chain.
func Generated(w io.Writer, res *workflow.GenerateResult) {
	section(w, "Caso de estudio", res.CaseStudy)
	if res.Analyzed {
		section(w, "Análisis IA", res.Analysis)
	}
}

// Extraction prints an ingested document's text and analysis.
func Extraction(w io.Writer, ext *model.Extraction) {
	section(w, "Texto extraído", ext.Text)
	section(w, "Análisis IA", ext.Analysis)
}

// Comparison prints a comparison result.
func Comparison(w io.Writer, res *model.ComparisonResult) {
	heading.Fprintln(w, "Comparación")
	fmt.Fprintln(w, Sanitize(res.Summary))
	fmt.Fprintln(w)
	field(w, "Efectividad", Sanitize(res.Effectiveness))
	field(w, "Impacto", formatScore(res.Impact))
	field(w, "Probabilidad", formatScore(res.Probability))
	label.Fprint(w, "Riesgo: ")
	levelColor(res.Level).Fprintf(w, "%s (%s)\n", formatScore(res.Risk), Sanitize(res.Level))
	if res.EffectivenessExplanation != "" {
		field(w, "Explicación efectividad", Sanitize(res.EffectivenessExplanation))
	}
	if res.RiskExplanation != "" {
		field(w, "Explicación riesgo", Sanitize(res.RiskExplanation))
	}
}

// Risk prints a standalone risk assessment.
func Risk(w io.Writer, r model.RiskAssessment) {
	heading.Fprintln(w, "Evaluación de riesgo")
	field(w, "Impacto", fmt.Sprint(r.Impact))
	field(w, "Probabilidad", fmt.Sprint(r.Probability))
	label.Fprint(w, "Riesgo: ")
	levelColor(r.Level).Fprintf(w, "%d (%s)\n", r.Risk, r.Level)
}

// Panel prints the comparison panel.
func Panel(w io.Writer, v workflow.PanelView) {
	heading.Fprintf(w, "Panel de comparación [%s]\n", v.State)
	section(w, "Borrador", v.Draft)
	switch v.State {
	case workflow.PanelSuccess:
		if v.Result != nil {
			Comparison(w, v.Result)
		}
	case workflow.PanelFailed:
		Failure(w, v.Message)
	}
}

// Statuses prints one line per operation kind.
func Statuses(w io.Writer, statuses []workflow.Status) {
	for _, st := range statuses {
		c := faint
		switch st.State {
		case workflow.Success:
			c = good
		case workflow.Failed:
			c = bad
		case workflow.InFlight:
			c = label
		}
		line := fmt.Sprintf("%-9s %-10s", st.Kind, st.State)
		if st.Seq > 0 {
			line += fmt.Sprintf(" #%d", st.Seq)
		}
		if st.Message != "" {
			line += "  " + Sanitize(st.Message)
		}
		c.Fprintln(w, line)
	}
}

// History prints one line per recorded comparison.
func History(w io.Writer, records []model.ComparisonRecord) {
	if len(records) == 0 {
		faint.Fprintln(w, "Sin comparaciones registradas.")
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "%s  %-5s %s ", r.CreatedAt.Format("2006-01-02 15:04"), Sanitize(r.Result.Effectiveness), formatScore(r.Result.Risk))
		levelColor(r.Result.Level).Fprintln(w, Sanitize(r.Result.Level))
	}
}

func section(w io.Writer, title, body string) {
	label.Fprintf(w, "%s:\n", title)
	if strings.TrimSpace(body) == "" {
		faint.Fprintln(w, placeholder)
	} else {
		Text(w, body)
	}
	fmt.Fprintln(w)
}

func field(w io.Writer, name, value string) {
	label.Fprintf(w, "%s: ", name)
	fmt.Fprintln(w, value)
}

func levelColor(level string) *color.Color {
	switch level {
	case model.RiskHigh:
		return bad
	case model.RiskMedium:
		return label
	case model.RiskLow:
		return good
	default:
		return faint
	}
}

func formatScore(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.1f", f)
}
