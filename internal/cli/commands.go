package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/negraodenio/roast/internal/adapter"
	"github.com/negraodenio/roast/internal/app"
	"github.com/negraodenio/roast/internal/domain"
	"github.com/negraodenio/roast/internal/service/audit"
	"github.com/negraodenio/roast/internal/service/roast"
)

func newRoastCmd(open opener) *cobra.Command {
	var (
		save       bool
		public     bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "roast <url>",
		Short: "Roast a website",
		Long:  "Fetch a page, run the roast and every audit, and print the report. With --save the roast is stored like an anonymous API roast.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := open(ctx, app.Options{SkipStores: !save})
			if err != nil {
				return err
			}
			defer sess.close()

			progress := newProgressPrinter(cmd.ErrOrStderr())
			formatter := adapter.NewReportFormatter(sess.appURL)

			if save {
				outcome, err := sess.roasts.Roast(ctx, roast.Request{URL: args[0], IsPublic: &public}, progress)
				if err != nil {
					return fmt.Errorf("roast failed: %w", err)
				}
				text, err := formatter.FormatSaved(outcome.RoastID.String(), outcome.Score)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}

			analysis, err := sess.roasts.Analyze(ctx, args[0], progress)
			if err != nil {
				return fmt.Errorf("roast failed: %w", err)
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), newReport(analysis))
			}
			text, err := formatter.FormatReport(analysis.URL, analysis.Score, analysis.Bundle)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store the roast in the database")
	cmd.Flags().BoolVar(&public, "public", true, "list a saved roast on the public wall")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}

func newMigrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := open(cmd.Context(), app.Options{Migrate: true})
			if err != nil {
				return err
			}
			defer sess.close()
			fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date")
			return nil
		},
	}
}

func newUpgradeUserCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade-user <email>",
		Short: "Move a profile to the agency plan with unlimited roasts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := open(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer sess.close()

			if err := sess.roasts.UpgradeToAgency(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("upgrade failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Upgraded %s to agency\n", args[0])
			return nil
		},
	}
}

func newMarkPaidCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-paid <roast-id>",
		Short: "Unlock the full audit of a roast after payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := open(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer sess.close()

			flipped, err := sess.roasts.ConfirmPayment(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("mark paid failed: %w", err)
			}
			if !flipped {
				fmt.Fprintf(cmd.OutOrStdout(), "Roast %s was already paid or does not exist\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Roast %s unlocked\n", args[0])
			return nil
		},
	}
}

// progressPrinter reports settled categories as they arrive.
type progressPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

func (p *progressPrinter) CategorySettled(event domain.CategoryEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.Defaulted {
		fmt.Fprintf(p.out, "  %s done (default)\n", event.Category)
		return
	}
	fmt.Fprintf(p.out, "  %s done\n", event.Category)
}

var _ audit.Observer = (*progressPrinter)(nil)

type report struct {
	URL    string                                  `json:"url"`
	Score  int                                     `json:"score"`
	Roast  domain.RoastResult                      `json:"roast"`
	Audits map[domain.Category]*domain.AuditResult `json:"audits"`
}

func newReport(a *roast.Analysis) report {
	r := report{
		URL:    a.URL,
		Score:  a.Score,
		Roast:  a.Bundle.Roast,
		Audits: make(map[domain.Category]*domain.AuditResult, len(a.Bundle.Audits)),
	}
	for _, c := range domain.AuditCategories() {
		if result := a.Bundle.Audit(c); result != nil {
			r.Audits[c] = result
		}
	}
	return r
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
