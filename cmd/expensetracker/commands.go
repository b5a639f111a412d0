package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/cli"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
)

const shutdownTimeout = 30 * time.Second

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "expensetracker",
		Short: "Track expenses against a fixed starting balance",
		Long: `Expense Tracker records dated, categorised expenses, deducts them from a
starting balance of $5000.00 and keeps a category-wise total file in step
with every change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"),
		"optional YAML configuration file")

	root.AddCommand(
		newServeCmd(opts),
		newAddCmd(opts),
		newListCmd(opts),
		newClearCmd(opts),
		newTotalsCmd(opts),
		newExportCmd(opts),
	)
	return root
}

// withApp loads configuration, opens the ledger and runs fn, closing every
// resource afterwards.
func withApp(ctx context.Context, opts *rootOptions, fn func(*cli.App) error) error {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig(opts.configPath)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	app, err := cli.OpenApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to release resources", log.FieldError, err)
		}
	}()
	return fn(app)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *cli.App) error {
				ctx, cancel := cli.SignalContext(cmd.Context(), app.Logger)
				defer cancel()
				return serve(ctx, app)
			})
		},
	}
}

func serve(ctx context.Context, app *cli.App) error {
	srv := apphttp.NewServer(":"+app.Config.Port, app.Ledger, app.Logger)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Logger.Info("Starting expensetracker server",
			"port", app.Config.Port,
			log.FieldBackend, app.Config.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		app.Logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
		return nil
	})

	return g.Wait()
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <date> <category> <amount>",
		Short: "Record an expense and deduct it from the balance",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *cli.App) error {
				e, err := app.Ledger.AppendText(cmd.Context(), args[0], args[1], args[2])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Expense: %s\n", core.FormatDollars(e.Amount))
				fmt.Fprintf(out, "Balance: %s\n", core.FormatDollars(app.Ledger.Balance()))
				return nil
			})
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var sortBy string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the recorded expenses and the balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := ledger.ParseSortKey(sortBy)
			if !ok {
				return fmt.Errorf("invalid sort column %q: want date, category or amount", sortBy)
			}
			return withApp(cmd.Context(), opts, func(app *cli.App) error {
				return printLedger(cmd.OutOrStdout(), app.Ledger.Sorted(key), app.Ledger.Balance())
			})
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort column: date, category or amount")
	return cmd
}

func printLedger(w io.Writer, records []core.Expense, balance float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCATEGORY\tAMOUNT")
	for _, e := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Date, e.Category, core.FormatDollars(e.Amount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Balance: %s\n", core.FormatDollars(balance))
	return err
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every expense and reset the balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *cli.App) error {
				app.Ledger.Clear(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "Balance: %s\n", core.FormatDollars(app.Ledger.Balance()))
				return nil
			})
		},
	}
}

func newTotalsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "totals",
		Short: "Print the category-wise totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *cli.App) error {
				_, err := io.WriteString(cmd.OutOrStdout(), app.Ledger.Summary())
				return err
			})
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Write the ledger and category totals to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *cli.App) error {
				l := app.Ledger
				if err := export.WriteFile(args[0], l.Records(), l.Totals(), l.Balance()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d expenses to %s\n", len(l.Records()), args[0])
				return nil
			})
		},
	}
}
