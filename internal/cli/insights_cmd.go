package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"smartspend/internal/insights"
	"smartspend/internal/services"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// insightsDocument is the machine-readable form of the insights command.
type insightsDocument struct {
	Report     insights.Report `json:"report" yaml:"report"`
	Highlights []string        `json:"highlights" yaml:"highlights"`
	Runway     string          `json:"runway,omitempty" yaml:"runway,omitempty"`
}

func newInsightsCmd(app *App) *cobra.Command {
	var (
		budget string
		output string
	)
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Summarize spending: totals, categories, budget and projection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := app.defaultBudget()
			if err != nil {
				return err
			}
			if budget != "" {
				if b, err = services.ParseBudget(budget); err != nil {
					return err
				}
			}

			h, err := app.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			ledger, err := h.ledger.Load(cmd.Context())
			if err != nil {
				return err
			}
			report := insights.Build(ledger, b)
			f := app.formatter()

			switch strings.ToLower(output) {
			case outputTable, "":
				app.printf("%s", renderReport(report, f))
				return nil
			case outputJSON, outputYAML:
				doc := insightsDocument{Report: report, Highlights: services.DescribeHighlights(report, f)}
				if report.Projection != nil {
					doc.Runway = services.DescribeRunway(report.Projection.Runway)
				}
				if strings.EqualFold(output, outputJSON) {
					enc := json.NewEncoder(app.out)
					enc.SetIndent("", "  ")
					return enc.Encode(doc)
				}
				enc := yaml.NewEncoder(app.out)
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown output format %q: use table, json or yaml", output)
			}
		},
	}
	cmd.Flags().StringVar(&budget, "budget", "", "Budget to compare against (default DEFAULT_BUDGET)")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json or yaml")
	return cmd
}

func newClassifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "classify DESCRIPTION...",
		Short: "Suggest a category for a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			app.printf("%s\n", insights.Classify(strings.Join(args, " ")))
			return nil
		},
	}
}
