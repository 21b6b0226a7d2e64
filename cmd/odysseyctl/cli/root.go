// Package cli implements the odysseyctl operations tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-retail/internal/app"
	"github.com/odyssey-erp/odyssey-retail/internal/inventory"
	"github.com/odyssey-erp/odyssey-retail/internal/platform/db"
)

// ConservationChecker is the read side used by the stock command.
type ConservationChecker interface {
	CheckConservation(ctx context.Context, tenantID, productID int64) ([]inventory.ConservationReport, error)
}

// Deps lets tests replace the backing services.
type Deps struct {
	LoadConfig func() (*app.Config, error)
	Jobs       func(cfg *app.Config) (*JobsCLI, error)
	Checker    func(ctx context.Context, cfg *app.Config) (ConservationChecker, func(), error)
}

// DefaultDeps connects to the configured Redis and PostgreSQL.
func DefaultDeps() Deps {
	return Deps{
		LoadConfig: app.LoadConfig,
		Jobs: func(cfg *app.Config) (*JobsCLI, error) {
			return NewJobsCLI(cfg.RedisAddr, cfg.IdempotencyRetentionHrs)
		},
		Checker: func(ctx context.Context, cfg *app.Config) (ConservationChecker, func(), error) {
			pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2})
			if err != nil {
				return nil, nil, err
			}
			repo := inventory.NewRepository(pool)
			svc := inventory.NewService(repo, inventory.NewLedger(slog.Default(), inventory.LedgerConfig{}), nil, nil, slog.Default())
			return svc, pool.Close, nil
		},
	}
}

// NewRootCommand builds the odysseyctl command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "odysseyctl",
		Short:         "Operations tool for the Odyssey retail engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newJobsCommand(deps), newStockCommand(deps))
	return root
}

func newJobsCommand(deps Deps) *cobra.Command {
	cmd := &cobra.Command{Use: "jobs", Short: "Inspect and trigger background jobs"}

	trigger := &cobra.Command{
		Use:       "trigger <job>",
		Short:     "Enqueue a job with its default payload",
		Example:   "  odysseyctl jobs trigger " + TriggerableJobs[0],
		Args:      cobra.ExactArgs(1),
		ValidArgs: TriggerableJobs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := openJobs(deps)
			if err != nil {
				return err
			}
			defer closeFn()
			info, err := c.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth per worker queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, closeFn, err := openJobs(deps)
			if err != nil {
				return err
			}
			defer closeFn()
			all, err := c.InspectQueues(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
			for _, s := range all {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(trigger, stats)
	return cmd
}

func openJobs(deps Deps) (*JobsCLI, func(), error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	c, err := deps.Jobs(cfg)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

func newStockCommand(deps Deps) *cobra.Command {
	cmd := &cobra.Command{Use: "stock", Short: "Stock ledger checks"}

	var tenantID, productID int64
	conservation := &cobra.Command{
		Use:   "conservation",
		Short: "Verify opening quantity plus movements equals on-hand",
		Long: `Compares every product's on-hand quantity with its opening quantity plus the
sum of its stock movements. Exits non-zero when any product drifted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			if tenantID == 0 {
				tenantID = cfg.DefaultTenantID
			}
			checker, closeFn, err := deps.Checker(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}
			reports, err := checker.CheckConservation(cmd.Context(), tenantID, productID)
			if err != nil {
				return err
			}
			return printConservation(cmd.OutOrStdout(), reports)
		},
	}
	conservation.Flags().Int64Var(&tenantID, "tenant", 0, "tenant id (default from DEFAULT_TENANT_ID)")
	conservation.Flags().Int64Var(&productID, "product", 0, "check a single product")

	cmd.AddCommand(conservation)
	return cmd
}

// ErrImbalance is returned when the conservation check finds drift.
var ErrImbalance = errors.New("stock conservation violated")

func printConservation(out io.Writer, reports []inventory.ConservationReport) error {
	if len(reports) == 0 {
		fmt.Fprintln(out, "stock ledger balanced")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tOPENING\tMOVEMENTS\tON_HAND\tDRIFT")
	ids := make([]string, 0, len(reports))
	for _, r := range reports {
		drift := r.OnHand - (r.Opening + r.Movements)
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n", r.ProductID, r.Opening, r.Movements, r.OnHand, drift)
		ids = append(ids, fmt.Sprint(r.ProductID))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return fmt.Errorf("%w: products %s", ErrImbalance, strings.Join(ids, ","))
}
