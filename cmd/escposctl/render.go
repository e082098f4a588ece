// cmd/escposctl/render.go
package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"escpos-service/internal/document"
	"escpos-service/internal/imageprep"
	"escpos-service/internal/profile"
	"escpos-service/internal/raster"
	"escpos-service/internal/service"
)

// readInput reads a file, or stdin when path is "-"
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// writeOutput writes data to path, or stdout when path is empty
func writeOutput(cmd *cobra.Command, path, format string, data []byte) error {
	var out []byte
	switch format {
	case "binary", "":
		out = data
	case "hex":
		out = []byte(hex.EncodeToString(data) + "\n")
	case "base64":
		out = []byte(base64.StdEncoding.EncodeToString(data) + "\n")
	case "dump":
		out = []byte(hex.Dump(data))
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if path == "" {
		_, err := cmd.OutOrStdout().Write(out)
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// renderDocument parses raw and composes it for model, the document's own
// model or the configured default, in that order
func renderDocument(raw []byte, model string) (*document.Result, error) {
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = doc.Model
	}
	p, err := loadProfile(model)
	if err != nil {
		return nil, err
	}
	opts, err := service.DocumentOptions(&cfg.Printer)
	if err != nil {
		return nil, err
	}
	return document.Render(p, doc, opts, logger)
}

func newRenderCmd() *cobra.Command {
	var model, output, format string

	cmd := &cobra.Command{
		Use:   "render <document.json|->",
		Short: "Compose a print document into ESC/POS bytes",
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
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d bytes, %d segments, %d codepage selects, %d image chunks\n",
				result.Model, result.Bytes, result.Stats.Segments, result.Stats.CodepageSelects, result.Stats.ImageChunks)
			return writeOutput(cmd, output, format, result.Data)
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Printer model (defaults to the document's model)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "binary", "Output format (binary, hex, base64, dump)")
	return cmd
}

func newImageCmd() *cobra.Command {
	var (
		model, output, format   string
		mode, density, dither   string
		threshold               int
		center, invert, noScale bool
	)

	cmd := &cobra.Command{
		Use:   "image <file>",
		Short: "Convert an image into ESC/POS bit image commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile(model)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			img, kind, err := imageprep.Decode(f)
			if err != nil {
				return err
			}

			prep := imageprep.DefaultOptions()
			if prep.Dither, err = imageprep.ParseDither(dither); err != nil {
				return err
			}
			if threshold < 0 || threshold > 255 {
				return fmt.Errorf("threshold must be between 0 and 255")
			}
			prep.Threshold = uint8(threshold)
			prep.Invert = invert
			if !noScale {
				prep.MaxWidth = p.PaperWidthPixels
			}
			bm := imageprep.Prepare(img, prep)

			opts := raster.DefaultOptions()
			opts.Center = center
			if opts.Mode, err = raster.ParseMode(mode); err != nil {
				return err
			}
			if opts.Density, err = profile.ParseDensity(density); err != nil {
				return err
			}

			data, err := raster.NewConverter(p, logger).Encode(bm, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %dx%d -> %s: %d bytes\n", kind, bm.Width, bm.Height, p.Name, len(data))
			return writeOutput(cmd, output, format, data)
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Printer model")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "binary", "Output format (binary, hex, base64, dump)")
	cmd.Flags().StringVar(&mode, "mode", "auto", "Image command (auto, raster, column, graphics)")
	cmd.Flags().StringVar(&density, "density", "high", "Print density (low, medium, high)")
	cmd.Flags().StringVar(&dither, "dither", "floyd-steinberg", "Dithering (floyd-steinberg, threshold)")
	cmd.Flags().IntVar(&threshold, "threshold", 128, "Gray level below which pixels are inked")
	cmd.Flags().BoolVar(&center, "center", false, "Center the image on the paper")
	cmd.Flags().BoolVar(&invert, "invert", false, "Invert the image")
	cmd.Flags().BoolVar(&noScale, "no-scale", false, "Do not scale the image to the paper width")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file|->",
		Short: "Hex dump an ESC/POS byte stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d bytes\n", len(data))
			return writeOutput(cmd, "", "dump", data)
		},
	}
}
