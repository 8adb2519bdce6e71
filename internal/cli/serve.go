package cli

import (
	"fmt"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entrypoint"
	"github.com/bremen-jose-oliveira/mylibrary/internal/fakeapi"
	"github.com/bremen-jose-oliveira/mylibrary/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// WatchCommand keeps notifications and friend requests fresh in the
// background.
type WatchCommand struct {
	Schedule    string
	MetricsAddr string
	Once        bool
}

func newWatchCommand(r *runtime) *cobra.Command {
	opts := &WatchCommand{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll notifications and friend requests on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if opts.Schedule == "" {
				opts.Schedule = r.cfg.Refresh.Schedule
			}
			if opts.MetricsAddr == "" {
				opts.MetricsAddr = r.cfg.Metrics.Addr
			}
			if !opts.Once {
				if err := scheduler.ValidateSchedule(opts.Schedule); err != nil {
					return err
				}
			}

			app, user, err := r.loggedIn(ctx)
			if err != nil {
				return err
			}

			if opts.Once {
				result := app.Scheduler.RunNow(ctx)
				if result.Err != nil {
					return result.Err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d unread notifications, %d pending friend requests\n", result.Unread, result.PendingRequests)
				return nil
			}

			if err := app.Scheduler.Start(ctx, opts.Schedule); err != nil {
				return err
			}
			r.log.WithField("user", user.Email).WithField("schedule", opts.Schedule).Info("watching for updates")
			app.Scheduler.RunNow(ctx)

			if opts.MetricsAddr != "" {
				handler := promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})
				return entrypoint.Serve(ctx, opts.MetricsAddr, handler, r.log)
			}
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Schedule, "schedule", "", "Cron schedule (overrides REFRESH_SCHEDULE)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "Refresh once and exit")
	return cmd
}

// FakeServerCommand runs the in-memory backend for local development.
type FakeServerCommand struct {
	Addr string
}

func newFakeServerCommand(r *runtime) *cobra.Command {
	opts := &FakeServerCommand{}
	cmd := &cobra.Command{
		Use:   "fake-server",
		Short: "Run an in-memory backend for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Addr == "" {
				opts.Addr = r.cfg.FakeAPI.Addr
			}
			server := fakeapi.New(fakeapi.Config{Secret: r.cfg.FakeAPI.Secret, Logger: r.log})
			return entrypoint.Serve(cmd.Context(), opts.Addr, server.Handler(), r.log)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (overrides FAKE_API_ADDR)")
	return cmd
}
