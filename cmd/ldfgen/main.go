package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/danmuck/fastmon/internal/logging"
	"github.com/danmuck/fastmon/internal/protocol/frame"
	"github.com/danmuck/fastmon/internal/source"
	"github.com/klauspost/compress/zstd"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()

	opts := defaultGenOptions()
	output := flag.String("output", "synthetic.ldf", "output path; a .zst suffix compresses the stream")
	natsURL := flag.String("nats", "", "publish to this NATS server instead of writing a file")
	stream := flag.String("stream", "READOUT", "JetStream stream to create or update when publishing")
	subject := flag.String("subject", "readout.lat", "subject to publish on")
	flag.IntVar(&opts.events, "n", opts.events, "number of events")
	flag.Uint64Var(&opts.seed, "seed", opts.seed, "random seed")
	flag.IntVar(&opts.contextEvery, "context-every", opts.contextEvery, "emit a run context every n events (0 = never)")
	flag.IntVar(&opts.unknownEvery, "unknown-every", 0, "add an unrecognized component to every nth event (0 = never)")
	ticks := flag.Uint("ticks-per-event", uint(opts.ticksPerEvent), "tick counter advance per event")
	flag.IntVar(&opts.eventsPerHack, "events-per-hack", opts.eventsPerHack, "events between one-PPS time hacks")
	flag.Parse()
	opts.ticksPerEvent = uint32(*ticks)

	var err error
	if *natsURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		err = publish(ctx, *natsURL, *stream, *subject, opts)
	} else {
		err = writeFile(*output, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ldfgen: %v\n", err)
		os.Exit(1)
	}
}

func writeFile(path string, opts genOptions) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(path, ".zst") {
		zw, zerr := zstd.NewWriter(f)
		if zerr != nil {
			return zerr
		}
		defer func() {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}()
		w = zw
	}
	bw := bufio.NewWriter(w)
	if err := generate(bw, opts); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("events", opts.events).Msg("stream written")
	return nil
}

// generate writes opts.events framed records to w. Run contexts go in-band.
func generate(w io.Writer, opts genOptions) error {
	g := newGenerator(opts)
	limits := frame.DefaultLimits()
	for i := 0; i < opts.events; i++ {
		b, ctx := g.event(i)
		if err := frame.WriteRecord(w, b.Record(ctx), limits); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

func publish(ctx context.Context, url, stream, subject string, opts genOptions) error {
	nc, err := nats.Connect(url, nats.Name("ldfgen"))
	if err != nil {
		return err
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		return err
	}
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{Name: stream, Subjects: []string{subject}}); err != nil {
		if !errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
			return fmt.Errorf("stream %s: %w", stream, err)
		}
	}

	g := newGenerator(opts)
	for i := 0; i < opts.events; i++ {
		b, runCtx := g.event(i)
		if runCtx != nil {
			if err := source.PublishContext(ctx, js, subject, *runCtx); err != nil {
				return err
			}
		}
		if err := source.Publish(ctx, js, subject, b.Record(nil)); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	log.Info().Str("url", url).Str("subject", subject).Int("events", opts.events).Msg("stream published")
	return nil
}
