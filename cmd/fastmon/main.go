package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/fastmon/internal/config"
	"github.com/danmuck/fastmon/internal/eventerr"
	"github.com/danmuck/fastmon/internal/fields"
	"github.com/danmuck/fastmon/internal/observability"
	"github.com/danmuck/fastmon/internal/processor"
	"github.com/danmuck/fastmon/internal/schema"
	"github.com/danmuck/fastmon/internal/sink"
	"github.com/danmuck/fastmon/internal/source"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "fastmon: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := observability.InitLogger(runID)

	report, err := execute(ctx, cfg, runID, logger)
	if cfg.Report != "" && report.RunID != "" {
		if werr := processor.WriteReport(cfg.Report, report); werr != nil {
			logger.Error().Err(werr).Str("path", cfg.Report).Msg("write report")
			if err == nil {
				err = werr
			}
		} else {
			logger.Info().Str("path", cfg.Report).Msg("report written")
		}
	}
	return err
}

func execute(ctx context.Context, cfg config.RunConfig, runID string, logger zerolog.Logger) (eventerr.RunReport, error) {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return eventerr.RunReport{}, err
	}

	src, err := openSource(ctx, cfg)
	if err != nil {
		return eventerr.RunReport{}, err
	}
	defer src.Close()

	out, err := openSink(cfg)
	if err != nil {
		return eventerr.RunReport{}, err
	}

	opts := []processor.Option{processor.WithLogger(logger)}
	if cfg.StatusAddr != "" {
		status := observability.NewStatus(runID, logger)
		statusCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := status.Serve(statusCtx, cfg.StatusAddr); err != nil {
				logger.Error().Err(err).Str("addr", cfg.StatusAddr).Msg("status endpoint stopped")
			}
		}()
		opts = append(opts, processor.WithPublisher(status))
	}

	p, err := processor.New(reg, src, out, cfg.ProcessorConfig(runID), opts...)
	if err != nil {
		_ = out.Close()
		return eventerr.RunReport{}, err
	}
	logger.Info().
		Str("input", inputName(cfg)).
		Str("format", string(cfg.Format)).
		Int("fields", reg.Len()).
		Msg("fastmon starting")

	report, err := p.Run(ctx)
	report.Input = inputName(cfg)
	return report, err
}

func buildRegistry(cfg config.RunConfig) (*fields.Registry, error) {
	doc := schema.Default()
	if cfg.Schema != "" {
		loaded, err := schema.Load(cfg.Schema)
		if err != nil {
			return nil, err
		}
		doc = loaded
	}
	if len(cfg.DisableGroups) > 0 {
		doc = doc.WithoutGroups(cfg.DisableGroups...)
	}
	reg := fields.NewRegistry()
	if err := schema.Declare(reg, doc); err != nil {
		return nil, err
	}
	return reg, nil
}

func openSource(ctx context.Context, cfg config.RunConfig) (source.Source, error) {
	if cfg.Format == source.FormatNATS {
		return source.DialJetStream(ctx, cfg.NATS)
	}
	return source.OpenFile(cfg.Input, cfg.Format, cfg.Limits)
}

func openSink(cfg config.RunConfig) (sink.Sink, error) {
	if cfg.Output == "" {
		return &sink.Discard{}, nil
	}
	return sink.CreateJSONL(cfg.Output, sink.WithFields(cfg.OutputFields...))
}

func inputName(cfg config.RunConfig) string {
	if cfg.Format == source.FormatNATS {
		return cfg.NATS.URL + "/" + cfg.NATS.Stream
	}
	return cfg.Input
}
