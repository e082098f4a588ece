// cmd/escposctl/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"escpos-service/internal/config"
	"escpos-service/internal/profile"
	"escpos-service/internal/service"
	"escpos-service/internal/utils"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "escposctl",
		Short:         "Render and send ESC/POS print documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadFile(configPath)
			if err != nil {
				return err
			}
			logging := cfg.Logging
			logging.Output = "stderr"
			logging.Format = "console"
			if logLevel != "" {
				logging.Level = logLevel
			}
			logger, err = utils.NewLogger(&logging)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = utils.CloseLogger(logger)
			}
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newProfilesCmd(),
		newCodePagesCmd(),
		newEncodeCmd(),
		newRenderCmd(),
		newImageCmd(),
		newInspectCmd(),
		newPrintCmd(),
		newStatusCmd(),
		newDiscoverCmd(),
		newMigrateCmd(),
	)
	return root
}

// loadProfile resolves model against the configured registry; empty means the
// configured default model
func loadProfile(model string) (*profile.Profile, error) {
	registry, err := service.LoadRegistry(cfg.Printer.ProfilesFile)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = cfg.Printer.DefaultModel
	}
	p, ok := registry.Get(model)
	if !ok {
		return nil, fmt.Errorf("unknown printer model: %s", model)
	}
	return p, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
