package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salesservice/internal/app"
	"salesservice/internal/config"
	"salesservice/internal/reports"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	return newRootCmdWithConfig(config.New())
}

// newRootCmdWithConfig binds the persistent flags into v. Environment
// variables and the config file fill whatever the flags leave unset.
func newRootCmdWithConfig(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "salesservice",
		Short:         "Order fulfillment API and sales report worker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("http-addr", "", "HTTP listen address")
	flags.String("database-driver", "", "database driver: postgres|sqlite")
	flags.String("database-url", "", "database connection string")
	flags.String("kafka-broker", "", "Kafka bootstrap broker")

	v.BindPFlag(config.KeyConfigFile, flags.Lookup("config"))
	v.BindPFlag(config.KeyHTTPAddr, flags.Lookup("http-addr"))
	v.BindPFlag(config.KeyDatabaseDriver, flags.Lookup("database-driver"))
	v.BindPFlag(config.KeyDatabaseURL, flags.Lookup("database-url"))
	v.BindPFlag(config.KeyKafkaBroker, flags.Lookup("kafka-broker"))

	root.AddCommand(newAPICmd(v), newWorkerCmd(v), newRequestReportCmd(v))
	return root
}

func newAPICmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v, app.ComponentAPI, (*app.Application).RunAPI)
		},
	}
}

func newWorkerCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume report commands until the queue drains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v, app.ComponentWorker, (*app.Application).RunWorker)
		},
	}
}

func newRequestReportCmd(v *viper.Viper) *cobra.Command {
	var start, end, requestedBy string

	cmd := &cobra.Command{
		Use:   "request-report",
		Short: "Queue a sales report for the given date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := buildReportRequest(start, end, requestedBy)
			if err != nil {
				return err
			}
			return run(cmd.Context(), v, app.ComponentCLI, func(a *app.Application) error {
				ack, err := a.RequestReport(req)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ack)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "range start (YYYY-MM-DD or RFC3339); defaults to the first day of the current month")
	cmd.Flags().StringVar(&end, "end", "", "range end (YYYY-MM-DD or RFC3339); defaults to the last day of the current month")
	cmd.Flags().StringVar(&requestedBy, "requested-by", "", "name recorded on the report request")
	return cmd
}

func run(ctx context.Context, v *viper.Viper, component string, fn func(*app.Application) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadConfig(v)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	application, err := app.NewApplication(ctx, cfg, component)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	return fn(application)
}

func buildReportRequest(start, end, requestedBy string) (reports.Request, error) {
	req := reports.Request{RequestedBy: requestedBy}
	var err error
	if req.StartDate, err = parseDateFlag("start", start); err != nil {
		return reports.Request{}, err
	}
	if req.EndDate, err = parseDateFlag("end", end); err != nil {
		return reports.Request{}, err
	}
	if req.EndDate != nil && isDateOnly(end) {
		// A bare end date covers the whole day, matching the month default's 23:59:59.
		endOfDay := req.EndDate.Add(24*time.Hour - time.Second)
		req.EndDate = &endOfDay
	}
	return req, nil
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("--%s: %q is not a date (want YYYY-MM-DD or RFC3339)", name, value)
}

func isDateOnly(value string) bool {
	_, err := time.Parse(time.DateOnly, value)
	return err == nil
}
