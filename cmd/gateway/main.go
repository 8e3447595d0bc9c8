package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"syriahub-gateway/internal/config"
	"syriahub-gateway/internal/gateway"
	"syriahub-gateway/internal/logger"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "gateway",
		Short:         "Rate limiting gateway for the SyriaHub API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: gateway.yaml in ., ./configs, /etc/syriahub)")

	root.AddCommand(newServeCmd(), newPoliciesCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}

			log, closeLog, err := logger.New(logger.Config{
				Level:      cfg.Logger.Level,
				Format:     cfg.Logger.Format,
				OutputPath: cfg.Logger.OutputPath,
			})
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()
			slog.SetDefault(log)

			gw, err := gateway.New(cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := gw.Close(); err != nil {
					log.Warn("failed to close gateway resources", "error", err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return gw.Run(ctx)
		},
	}
}

func newPoliciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "Print the effective rate limit policy table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			policies, err := cfg.Policies()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tMAX\tWINDOW")
			for _, c := range policies.Categories() {
				p := policies[c]
				fmt.Fprintf(tw, "%s\t%d\t%s\n", c, p.MaxRequests, p.Window)
			}
			return tw.Flush()
		},
	}
}
