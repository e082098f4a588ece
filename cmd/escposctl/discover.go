// cmd/escposctl/discover.go
package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"escpos-service/internal/repository"
	"escpos-service/internal/service"
)

func newDiscoverCmd() *cobra.Command {
	var (
		types  []string
		ranges []string
		format string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan USB, serial ports and networks for receipt printers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wanted, err := service.ParseConnectionTypes(types)
			if err != nil {
				return err
			}
			if len(ranges) > 0 {
				cfg.Discovery.NetworkRanges = ranges
			}

			registry, err := service.LoadRegistry(cfg.Printer.ProfilesFile)
			if err != nil {
				return err
			}
			profiles := service.NewProfileService(registry, cfg.Printer.ProfilesFile, nil, logger)
			discoverer := service.NewDiscoveryService(
				service.NewScannerManager(&cfg.Discovery, logger),
				profiles,
				repository.NewMemoryPrinterRepository(),
				cfg,
				logger,
			)

			result, err := discoverer.Scan(cmd.Context(), wanted)
			if err != nil {
				return err
			}
			if format != "table" {
				return writeValue(cmd, format, result)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tMODEL\tVENDOR\tLOCATION\tCONFIDENCE\tCONNECTION")
			for _, p := range result.Printers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
					p.ConnectionType, p.Model, orDash(p.Vendor), orDash(p.Location), p.Confidence, formatSettings(p.ConnectionConfig))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			for _, e := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", e)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&types, "types", nil, "Connection types to scan (usb, serial, tcp)")
	cmd.Flags().StringSliceVar(&ranges, "range", nil, "Network range to probe, overrides discovery.network_ranges")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format (table, yaml, json)")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatSettings(settings map[string]interface{}) string {
	parts := make([]string, 0, len(settings))
	for k, v := range settings {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
