package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"smartspend/internal/core"
	"smartspend/internal/insights"
	"smartspend/internal/services"
	"smartspend/internal/storage"
	"smartspend/internal/storage/csvfile"
)

type expenseFlags struct {
	date        string
	amount      string
	category    string
	description string
}

func (f *expenseFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "Expense date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&f.amount, "amount", "", "Amount spent")
	cmd.Flags().StringVar(&f.category, "category", "", "Category (Food, Travel, Shopping, Bills, Other); suggested from the description when empty")
	cmd.Flags().StringVarP(&f.description, "description", "m", "", "Free-text description")
}

func (f *expenseFlags) input() services.ExpenseInput {
	return services.ExpenseInput{
		Date:        f.date,
		Amount:      f.amount,
		Category:    f.category,
		Description: f.description,
	}
}

func parseIndexArg(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid index %q: must be a non-negative integer", arg)
	}
	return i, nil
}

func newAddCmd(app *App) *cobra.Command {
	var (
		flags       expenseFlags
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new expense",
		Example: `  smartspend add --amount 250 -m "Pizza with friends"
  smartspend add --interactive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := flags.input()
			if in.Date == "" {
				in.Date = core.Today().String()
			}
			if interactive {
				if err := promptExpense(&in); err != nil {
					return err
				}
			}
			e, err := in.Parse()
			if err != nil {
				return err
			}

			h, err := app.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			ledger, err := h.ledger.Add(cmd.Context(), e)
			if err != nil {
				return err
			}
			app.printf("Added expense #%d: %s %s (%s)\n", len(ledger)-1, app.formatter().Format(e.Amount), e.Description, e.Category)
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Fill in the expense with an interactive form")
	return cmd
}

// promptExpense asks for the expense fields, offering the classifier's
// suggestion as the first category.
func promptExpense(in *services.ExpenseInput) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Date").
				Placeholder("YYYY-MM-DD").
				Value(&in.Date).
				Validate(func(s string) error {
					_, err := core.ParseDate(s)
					return err
				}),
			huh.NewInput().
				Title("Amount").
				Value(&in.Amount).
				Validate(func(s string) error {
					_, err := core.ParseAmount(s)
					return err
				}),
			huh.NewInput().
				Title("Description").
				CharLimit(core.MaxDescriptionLength).
				Value(&in.Description),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Category").
				OptionsFunc(func() []huh.Option[string] {
					return categoryOptions(insights.Classify(in.Description))
				}, &in.Description).
				Value(&in.Category),
		),
	)
	return form.Run()
}

func categoryOptions(suggested core.Category) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption(string(suggested)+" (suggested)", string(suggested))}
	for _, c := range core.Categories() {
		if c != suggested {
			opts = append(opts, huh.NewOption(string(c), string(c)))
		}
	}
	return opts
}

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show every expense in ledger order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := app.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			ledger, err := h.ledger.Load(cmd.Context())
			if err != nil {
				return err
			}
			app.printf("%s", renderLedger(ledger, app.formatter()))
			return nil
		},
	}
}

func newEditCmd(app *App) *cobra.Command {
	var flags expenseFlags
	cmd := &cobra.Command{
		Use:   "edit INDEX",
		Short: "Replace fields of the expense at INDEX",
		Long:  "Replace fields of the expense at INDEX. Fields without a flag keep their current value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndexArg(args[0])
			if err != nil {
				return err
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
			if err := storage.CheckIndex(index, len(ledger)); err != nil {
				return err
			}

			var ed services.ExpenseEdit
			fl := cmd.Flags()
			if fl.Changed("date") {
				ed.Date = &flags.date
			}
			if fl.Changed("amount") {
				ed.Amount = &flags.amount
			}
			if fl.Changed("description") {
				ed.Description = &flags.description
			}
			if fl.Changed("category") {
				ed.Category = &flags.category
			}

			e, err := ed.Apply(ledger[index])
			if err != nil {
				return err
			}
			if _, err := h.ledger.Replace(cmd.Context(), index, e); err != nil {
				return err
			}
			app.printf("Updated expense #%d: %s %s (%s)\n", index, app.formatter().Format(e.Amount), e.Description, e.Category)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete INDEX",
		Aliases: []string{"rm"},
		Short:   "Delete the expense at INDEX",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndexArg(args[0])
			if err != nil {
				return err
			}
			h, err := app.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			ledger, err := h.ledger.Delete(cmd.Context(), index)
			if err != nil {
				return err
			}
			app.printf("Deleted expense #%d, %d left\n", index, len(ledger))
			return nil
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := app.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			ledger, err := h.ledger.Load(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return csvfile.Encode(app.out, ledger)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := csvfile.Encode(f, ledger); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			app.printf("Exported %d expenses to %s\n", len(ledger), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	var appendRows bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load expenses from a CSV file into the ledger",
		Long: "Load expenses from a CSV file with the header Date,Amount,Category,Description.\n" +
			"Rows that fail validation are reported and skipped. The ledger is replaced unless --append is set.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			imported, rejected, err := csvfile.Decode(f)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			for _, r := range rejected {
				app.printf("%s line %d: %v (%s)\n", errorStyle.Render("skipped"), r.Line, r.Err, strings.Join(r.Record, ","))
			}

			h, err := app.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			ledger := imported
			if appendRows {
				current, err := h.ledger.Load(cmd.Context())
				if err != nil {
					return err
				}
				ledger = append(current, imported...)
			}
			if err := h.ledger.ReplaceAll(cmd.Context(), ledger); err != nil {
				return err
			}
			app.printf("Imported %d expenses (%d skipped), ledger now has %d\n", len(imported), len(rejected), len(ledger))
			return nil
		},
	}
	cmd.Flags().BoolVar(&appendRows, "append", false, "Append to the existing ledger instead of replacing it")
	return cmd
}
