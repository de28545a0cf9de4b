package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/fastmon/internal/config"
	"github.com/danmuck/fastmon/internal/source"
)

type cliFlags struct {
	configPath string
	input      string
	format     string
	schema     string
	output     string
	report     string
	maxEvents  uint64
	dump       bool
	statusAddr string
	disable    string
}

func parseFlags(args []string, stderr io.Writer) (config.RunConfig, error) {
	fs := flag.NewFlagSet("fastmon", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var f cliFlags
	fs.StringVar(&f.configPath, "config", "", "run config (TOML)")
	fs.StringVar(&f.input, "input", "", "framed input file (.ldf or .ldf.zst)")
	fs.StringVar(&f.format, "format", "", "input format: raw|zstd|nats (default from extension)")
	fs.StringVar(&f.schema, "schema", "", "schema document (defaults to the built-in schema)")
	fs.StringVar(&f.output, "output", "", "JSON lines output path (empty discards events)")
	fs.StringVar(&f.report, "report", "", "end-of-run TOML report path")
	fs.Uint64Var(&f.maxEvents, "n", 0, "stop after n events (0 = all)")
	fs.BoolVar(&f.dump, "dump-errors", false, "append events with errors to Err_<input>.ldf")
	fs.StringVar(&f.statusAddr, "status", "", "status endpoint listen address")
	fs.StringVar(&f.disable, "disable", "", "comma separated schema groups to disable")
	if err := fs.Parse(args); err != nil {
		return config.RunConfig{}, err
	}

	cfg := config.DefaultRunConfig()
	if f.configPath != "" {
		loaded, err := config.LoadRunConfig(f.configPath)
		if err != nil {
			return config.RunConfig{}, err
		}
		cfg = loaded
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["input"] {
		cfg.Input = strings.TrimSpace(f.input)
		if !set["format"] && cfg.Format != source.FormatNATS {
			cfg.Format = source.DetectFormat(cfg.Input)
		}
	}
	if set["format"] {
		format, err := source.ParseFormat(f.format)
		if err != nil {
			return config.RunConfig{}, err
		}
		cfg.Format = format
	}
	if set["schema"] {
		cfg.Schema = f.schema
	}
	if set["output"] {
		cfg.Output = f.output
	}
	if set["report"] {
		cfg.Report = f.report
	}
	if set["n"] {
		cfg.MaxEvents = f.maxEvents
	}
	if set["dump-errors"] {
		cfg.DumpErrors = f.dump
	}
	if set["status"] {
		cfg.StatusAddr = f.statusAddr
	}
	if set["disable"] {
		for _, g := range strings.Split(f.disable, ",") {
			if g = strings.TrimSpace(g); g != "" {
				cfg.DisableGroups = append(cfg.DisableGroups, g)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return config.RunConfig{}, fmt.Errorf("invalid run config: %w", err)
	}
	return cfg, nil
}
