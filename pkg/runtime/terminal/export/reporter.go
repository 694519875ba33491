package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
)

type TableConfig struct {
	LabelWidth  int
	CountWidth  int
	AmountWidth int
	ExtraWidth  int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		LabelWidth:  32,
		CountWidth:  12,
		AmountWidth: 18,
		ExtraWidth:  18,
	}
}

// Reporter renders AR analysis reports as fixed-width text tables.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

func (c *Reporter) Handle(report *api.ArAnalysisReport) error {
	funcMap := template.FuncMap{
		"formatRow": func(label string, count interface{}, amount string, extra string) string {
			return fmt.Sprintf("| %-*s | %-*v | %-*s | %-*s |",
				c.config.LabelWidth, label,
				c.config.CountWidth, count,
				c.config.AmountWidth, amount,
				c.config.ExtraWidth, extra)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.LabelWidth+2),
				strings.Repeat("-", c.config.CountWidth+2),
				strings.Repeat("-", c.config.AmountWidth+2),
				strings.Repeat("-", c.config.ExtraWidth+2))
		},
		"usd": func(v float64) string {
			return fmt.Sprintf("$%.2f", v)
		},
		"pct": func(v float64) string {
			return fmt.Sprintf("%.0f%%", v*100)
		},
	}

	tmpl := `
Insurance AR Analysis - Session {{.SessionID}}
Generated: {{.GeneratedAt.Format "2006-01-02 15:04"}}

{{if .Summary}}{{.Summary}}

{{end}}Claims Analyzed: {{.TotalClaimsAnalyzed}}
Total Underpayment: {{usd .TotalUnderpayment}}
Risk-Adjusted Recovery: {{usd .RiskAdjustedRecovery}}

=== Claims by Category ===
{{separator}}
{{formatRow "Category" "Count" "" ""}}
{{separator}}
{{range .CategoryCounts}}{{formatRow .Category .Count "" ""}}
{{end}}{{separator}}

=== Underpayment by Priority ===
{{separator}}
{{formatRow "Priority" "Claims" "Underpaid" "Recoverable"}}
{{separator}}
{{range .UnderpaymentByPriority}}{{formatRow .Priority .ClaimCount (usd .Underpaid) (usd .Recoverable)}}
{{end}}{{separator}}

=== Recovery Projection ===
{{separator}}
{{formatRow "Bucket" "" "Projected" "Probability"}}
{{separator}}
{{range .RecoveryProjection}}{{formatRow .Bucket "" (usd .ProjectedAmount) (pct .Probability)}}
{{end}}{{separator}}

=== Contingency Fee by Age ===
{{separator}}
{{formatRow "Age Band" "" "Fee" "Rate"}}
{{separator}}
{{range .ContingencyFeeByAge}}{{formatRow .AgeBand "" (usd .FeeAmount) (pct .FeeRate)}}
{{end}}{{separator}}
`

	t, err := template.New("report").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, report)
}
