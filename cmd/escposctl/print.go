// cmd/escposctl/print.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"escpos-service/internal/driver/escpos"
	"escpos-service/internal/model"
	"escpos-service/internal/protocol"
)

// connectionFlags select a transport without going through the printer registry
type connectionFlags struct {
	kind     string
	settings map[string]string
	timeout  time.Duration
}

func (cf *connectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&cf.kind, "connection", "t", "tcp", "Connection type (serial, usb, tcp, file)")
	cmd.Flags().StringToStringVar(&cf.settings, "set", nil, "Connection setting key=value, e.g. host=10.0.0.5")
	cmd.Flags().DurationVar(&cf.timeout, "timeout", 30*time.Second, "Overall timeout")
}

// open builds the transport from configured defaults plus --set overrides
func (cf *connectionFlags) open(ctx context.Context) (protocol.Transport, error) {
	connectionType := model.ConnectionType(strings.ToUpper(cf.kind))
	settings := make(map[string]interface{}, len(cf.settings))
	for k, v := range cf.settings {
		settings[k] = v
	}
	settings = protocol.Merge(protocol.Defaults(connectionType, &cfg.Transport), settings)

	transport, err := protocol.New(connectionType, settings, logger)
	if err != nil {
		return nil, err
	}
	if err := transport.Open(ctx); err != nil {
		return nil, err
	}
	return transport, nil
}

func newPrintCmd() *cobra.Command {
	var (
		model string
		conn  connectionFlags
	)

	cmd := &cobra.Command{
		Use:   "print <document.json|->",
		Short: "Compose a print document and send it to a printer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			result, err := renderDocument(raw, model)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), conn.timeout)
			defer cancel()

			transport, err := conn.open(ctx)
			if err != nil {
				return err
			}
			defer transport.Close()

			start := time.Now()
			if err := transport.Write(ctx, result.Data); err != nil {
				return err
			}
			logger.Info("Document sent",
				zap.String("model", result.Model),
				zap.Int("bytes", result.Bytes),
				zap.Duration("duration", time.Since(start)),
			)
			fmt.Fprintf(cmd.ErrOrStderr(), "sent %d bytes to %s\n", result.Bytes, transport.Type())
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Printer model (defaults to the document's model)")
	conn.register(cmd)
	return cmd
}

func newStatusCmd() *cobra.Command {
	var conn connectionFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query real-time printer status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), conn.timeout)
			defer cancel()

			transport, err := conn.open(ctx)
			if err != nil {
				return err
			}
			defer transport.Close()

			timeout := cfg.Printer.StatusTimeout
			if timeout <= 0 {
				timeout = 2 * time.Second
			}
			status, err := escpos.QueryStatus(ctx, transport, timeout)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		},
	}
	conn.register(cmd)
	return cmd
}
