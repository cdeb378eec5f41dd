package cmd

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/canne/csm-router/internal/domain"
	"github.com/canne/csm-router/internal/metrics"
)

const failureBackoff = 5 * time.Minute

func newRunCmd(app *app) *cobra.Command {
	var (
		interval    time.Duration
		dryRun      bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Route all accounts awaiting assignment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			ctrl, cleanup, err := app.controller(ctx, dryRun)
			if err != nil {
				return err
			}
			defer cleanup()

			if metricsAddr != "" {
				go serveMetrics(metricsAddr, app)
			}
			if interval == 0 {
				interval = app.cfg.RunInterval
			}

			for {
				result, err := ctrl.RunOnce(ctx)
				if err != nil {
					if interval <= 0 {
						return err
					}
					app.logger.Error("routing pass failed, backing off", "error", err, "backoff", failureBackoff)
					if err := sleep(ctx, failureBackoff); err != nil {
						return err
					}
					continue
				}

				printResult(cmd, result)
				if interval <= 0 {
					return nil
				}
				app.logger.Info("waiting before next pass", "interval", interval)
				if err := sleep(ctx, interval); err != nil {
					return err
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "re-run continuously with this delay between passes (0 runs once)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate and review without persisting anything")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9190)")

	return cmd
}

func printResult(cmd *cobra.Command, result domain.RunResult) {
	out := cmd.OutOrStdout()

	if len(result.Assignments) == 0 && len(result.Unassignable) == 0 {
		fmt.Fprintln(out, "nothing to route")
		return
	}

	accounts := make([]domain.AccountID, 0, len(result.Assignments))
	for account := range result.Assignments {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })

	status := "approved"
	if result.ForceFinalized {
		status = "force-finalized after exhausted retries"
	}
	fmt.Fprintf(out, "run %s: %d assigned (%s, %d attempt(s), %s)\n",
		result.RunID, len(result.Assignments), result.Method, result.Attempts, status)

	for _, account := range accounts {
		fmt.Fprintf(out, "  %s -> %s\n", account, result.Assignments[account])
	}
	for _, account := range result.Unassignable {
		fmt.Fprintf(out, "  %s UNASSIGNABLE: no eligible agent\n", account)
	}
	if result.Feedback != "" {
		fmt.Fprintf(out, "  reviewer: %s\n", result.Feedback)
	}
}

func serveMetrics(addr string, app *app) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		app.logger.Error("metrics server stopped", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
