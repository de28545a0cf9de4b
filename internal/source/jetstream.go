package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/fastmon/internal/protocol"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Message header marking how a live-feed message is interpreted.
const (
	HeaderKind  = "Fastmon-Kind"
	KindRecord  = "record"
	KindContext = "context"
)

const (
	defaultFetchBatch  = 32
	defaultIdleTimeout = 5 * time.Second
)

// NATSConfig selects the live stream to consume.
type NATSConfig struct {
	URL         string        `toml:"url"`
	Stream      string        `toml:"stream"`
	Subject     string        `toml:"subject"`
	Consumer    string        `toml:"consumer"`
	Batch       int           `toml:"batch"`
	IdleTimeout time.Duration `toml:"idle_timeout"`
}

// JetStream pulls record buffers from a JetStream consumer. Context messages
// are not returned; they ride on the next record. A fetch that sees no
// message within the idle timeout ends the stream.
//
// Delivery is at-least-once: messages are acked by Ack after the record is
// committed. Close naks everything fetched but not acked so the durable
// consumer redelivers it to the next run.
type JetStream struct {
	nc       *nats.Conn
	consumer jetstream.Consumer
	batch    int
	idle     time.Duration

	pending []jetstream.Msg
	unacked []jetstream.Msg
	context *protocol.Context
}

// DialJetStream connects and creates or updates a durable pull consumer.
func DialJetStream(ctx context.Context, cfg NATSConfig) (*JetStream, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Stream == "" {
		return nil, errors.New("source: nats stream is required")
	}
	nc, err := nats.Connect(cfg.URL, nats.Name("fastmon"))
	if err != nil {
		return nil, fmt.Errorf("source: connect %s: %w", cfg.URL, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("source: jetstream: %w", err)
	}
	s, err := NewJetStream(ctx, js, cfg)
	if err != nil {
		nc.Close()
		return nil, err
	}
	s.nc = nc
	return s, nil
}

// NewJetStream binds a consumer on an existing JetStream handle. The caller
// owns the connection.
func NewJetStream(ctx context.Context, js jetstream.JetStream, cfg NATSConfig) (*JetStream, error) {
	cc := jetstream.ConsumerConfig{
		Durable:       cfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
	if cfg.Subject != "" {
		cc.FilterSubject = cfg.Subject
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, cfg.Stream, cc)
	if err != nil {
		return nil, fmt.Errorf("source: consumer on stream %s: %w", cfg.Stream, err)
	}
	s := &JetStream{consumer: consumer, batch: cfg.Batch, idle: cfg.IdleTimeout}
	if s.batch <= 0 {
		s.batch = defaultFetchBatch
	}
	if s.idle <= 0 {
		s.idle = defaultIdleTimeout
	}
	log.Debug().Str("stream", cfg.Stream).Str("consumer", cfg.Consumer).Str("subject", cfg.Subject).Msg("jetstream source ready")
	return s, nil
}

func (s *JetStream) Next(ctx context.Context) (Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Record{}, err
		}
		if len(s.pending) == 0 {
			if err := s.fetch(); err != nil {
				return Record{}, err
			}
		}
		msg := s.pending[0]
		s.pending = s.pending[1:]

		data := append([]byte(nil), msg.Data()...)
		s.unacked = append(s.unacked, msg)
		if msg.Headers().Get(HeaderKind) == KindContext {
			c, err := protocol.ParseContext(data)
			if err != nil {
				log.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed live context")
				continue
			}
			s.context = &c
			continue
		}
		rec := Record{Data: data, Context: s.context}
		s.context = nil
		return rec, nil
	}
}

func (s *JetStream) fetch() error {
	batch, err := s.consumer.Fetch(s.batch, jetstream.FetchMaxWait(s.idle))
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) {
			return io.EOF
		}
		return fmt.Errorf("source: fetch: %w", err)
	}
	for msg := range batch.Messages() {
		s.pending = append(s.pending, msg)
	}
	if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
		return fmt.Errorf("source: fetch: %w", err)
	}
	if len(s.pending) == 0 {
		return io.EOF
	}
	return nil
}

// Ack acknowledges every message consumed up to the last returned record,
// including the contexts that rode on it.
func (s *JetStream) Ack() error {
	var errs []error
	for _, msg := range s.unacked {
		if err := msg.Ack(); err != nil {
			errs = append(errs, err)
		}
	}
	s.unacked = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("source: ack: %w", err)
	}
	return nil
}

func (s *JetStream) Close() error {
	var errs []error
	for _, msg := range append(s.unacked, s.pending...) {
		if err := msg.Nak(); err != nil {
			errs = append(errs, err)
		}
	}
	s.unacked, s.pending = nil, nil
	if s.nc != nil {
		if err := s.nc.Flush(); err != nil {
			errs = append(errs, err)
		}
		s.nc.Close()
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("source: close: %w", err)
	}
	return nil
}

// Publish sends one record buffer to subject.
func Publish(ctx context.Context, js jetstream.JetStream, subject string, data []byte) error {
	msg := nats.NewMsg(subject)
	msg.Header.Set(HeaderKind, KindRecord)
	msg.Data = data
	if _, err := js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("source: publish record: %w", err)
	}
	return nil
}

// PublishContext sends a run context that applies to the next record.
func PublishContext(ctx context.Context, js jetstream.JetStream, subject string, c protocol.Context) error {
	msg := nats.NewMsg(subject)
	msg.Header.Set(HeaderKind, KindContext)
	msg.Data = protocol.EncodeContext(c)
	if _, err := js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("source: publish context: %w", err)
	}
	return nil
}
