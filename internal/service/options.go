// internal/service/options.go
package service

import (
	"fmt"

	"escpos-service/internal/config"
	"escpos-service/internal/document"
	"escpos-service/internal/imageprep"
	"escpos-service/internal/magicencode"
	"escpos-service/internal/profile"
)

// DocumentOptions turns the printer configuration into composition defaults
func DocumentOptions(cfg *config.PrinterConfig) (document.Options, error) {
	opts := document.DefaultOptions()

	policy, err := magicencode.ParsePolicy(cfg.EncodingPolicy)
	if err != nil {
		return opts, err
	}
	opts.Encoding.Fallback = policy

	switch len(cfg.Placeholder) {
	case 0:
	case 1:
		opts.Encoding.Placeholder = cfg.Placeholder[0]
	default:
		return opts, fmt.Errorf("placeholder must be one character, got %q", cfg.Placeholder)
	}

	if opts.ImageDensity, err = profile.ParseDensity(cfg.ImageDensity); err != nil {
		return opts, err
	}
	if opts.ImageDither, err = imageprep.ParseDither(cfg.ImageDither); err != nil {
		return opts, err
	}
	opts.InitBeforeJob = cfg.InitBeforeJob
	opts.CutAfterJob = cfg.CutAfterJob
	opts.CutFeedLines = cfg.CutFeedLines
	return opts, nil
}
