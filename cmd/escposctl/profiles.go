// cmd/escposctl/profiles.go
package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"escpos-service/internal/codepage"
	"escpos-service/internal/magicencode"
	"escpos-service/internal/service"
)

func newProfilesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "profiles [model]",
		Short: "List printer profiles or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := service.LoadRegistry(cfg.Printer.ProfilesFile)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				p, ok := registry.Get(args[0])
				if !ok {
					return fmt.Errorf("unknown printer model: %s", args[0])
				}
				return writeValue(cmd, format, service.NewProfileInfo(p))
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tVENDOR\tCOLUMNS\tWIDTH\tFEATURES")
			for _, name := range registry.Names() {
				p, _ := registry.Get(name)
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					p.Name, p.Vendor, p.Columns, p.PaperWidthPixels, strings.Join(p.Features.Names(), ","))
			}
			fmt.Fprintf(w, "\nregistry version %s\n", registry.Version())
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "Output format for a single profile (yaml, json)")
	return cmd
}

func newCodePagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codepages [name|id]",
		Short: "List the codepage tables known to the encoder, or dump one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cp, err := findCodePage(args[0])
				if err != nil {
					return err
				}
				return dumpCodePage(cmd, cp)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, cp := range codepage.All() {
				fmt.Fprintf(w, "%d\t%s\n", cp.ID, cp.Name)
			}
			return w.Flush()
		},
	}
}

func findCodePage(arg string) (*codepage.CodePage, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		if cp, ok := codepage.Lookup(id); ok {
			return cp, nil
		}
	}
	if cp, ok := codepage.ByName(arg); ok {
		return cp, nil
	}
	return nil, fmt.Errorf("unknown codepage: %s", arg)
}

// dumpCodePage prints the upper half of the table, 16 characters per row
func dumpCodePage(cmd *cobra.Command, cp *codepage.CodePage) error {
	table := cp.Table()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (ESC t %d)\n", cp.Name, cp.ID)
	for row := 0x80; row < 0x100; row += 16 {
		fmt.Fprintf(out, "%02X ", row)
		for i := row; i < row+16; i++ {
			r := table[i]
			if r == codepage.Undefined || !unicode.IsPrint(r) {
				r = '.'
			}
			fmt.Fprintf(out, " %c", r)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func newEncodeCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "encode <text>",
		Short: "Show the codepage segments a text is encoded into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile(model)
			if err != nil {
				return err
			}
			opts, err := service.DocumentOptions(&cfg.Printer)
			if err != nil {
				return err
			}
			segments, err := magicencode.Encode(p, args[0], opts.Encoding)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODEPAGE\tBYTES")
			for _, seg := range segments {
				name := strconv.Itoa(seg.CodePage)
				if cp, ok := codepage.Lookup(seg.CodePage); ok {
					name = cp.Name
				}
				fmt.Fprintf(w, "%s\t% x\n", name, seg.Data)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Printer model")
	return cmd
}

func writeValue(cmd *cobra.Command, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
