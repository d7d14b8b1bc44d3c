package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fingerpicker/go/internal/picker/events"
)

// NATSConfig holds the NATS connection settings for feedback publishing.
type NATSConfig struct {
	URL           string        `yaml:"url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`

	// StreamName, when set, keeps round results in a JetStream stream so
	// late subscribers can replay them. Feedback stays on core NATS.
	StreamName      string        `yaml:"stream_name"`
	MaxAge          time.Duration `yaml:"max_age"`
	DuplicateWindow time.Duration `yaml:"duplicate_window"`
	PublishTimeout  time.Duration `yaml:"publish_timeout"`
}

// DefaultNATSConfig returns the default NATS settings.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "picker.tables",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,

		MaxAge:          24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
		PublishTimeout:  2 * time.Second,
	}
}

// publisher is the slice of *nats.Conn the publisher uses.
type publisher interface {
	Publish(subject string, data []byte) error
}

// streamPublisher is the slice of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes feedback requests and round results to NATS so
// remote renderers (phones, displays) can react. Feedback is fire-and-forget;
// round results go through JetStream when a stream is configured.
type NATSPublisher struct {
	nc     *nats.Conn
	pub    publisher
	js     streamPublisher
	prefix string
	stream string
	wait   time.Duration
}

// NewNATSPublisher connects to NATS.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	p := &NATSPublisher{nc: nc, pub: nc, prefix: cfg.SubjectPrefix, wait: cfg.PublishTimeout}
	if cfg.StreamName == "" {
		return p, nil
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(ctx, roundStreamConfig(cfg)); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.StreamName, err)
	}
	log.Info().Str("stream", cfg.StreamName).Msg("round results stream ready")

	p.js = js
	p.stream = cfg.StreamName
	return p, nil
}

func roundStreamConfig(cfg NATSConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Finished picker rounds",
		Subjects:    []string{fmt.Sprintf("%s.*.round.finished", cfg.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Duplicates:  cfg.DuplicateWindow,
	}
}

func newNATSPublisher(pub publisher, prefix string) *NATSPublisher {
	return &NATSPublisher{pub: pub, prefix: prefix}
}

// ForTable returns a collaborator publishing on <prefix>.<table>.feedback.<type>.
func (p *NATSPublisher) ForTable(tableID uuid.UUID) Collaborator {
	return Func(func(req events.Request) {
		subject := fmt.Sprintf("%s.%s.feedback.%s", p.prefix, tableID, req.Type)
		if err := p.publishJSON(subject, req); err != nil {
			log.Warn().Err(err).Str("subject", subject).Msg("failed to publish feedback request")
		}
	})
}

// PublishRoundFinished publishes a decided round on <prefix>.<table>.round.finished.
// With a stream configured the round id is the message id, so a retried
// publish is stored once.
func (p *NATSPublisher) PublishRoundFinished(tableID uuid.UUID, payload events.RoundFinishedPayload) error {
	subject := fmt.Sprintf("%s.%s.round.finished", p.prefix, tableID)
	if p.js == nil {
		return p.publishJSON(subject, payload)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.wait)
	defer cancel()

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Table-ID": []string{tableID.String()},
			"Round-ID": []string{payload.RoundID},
		},
	},
		jetstream.WithMsgID(payload.RoundID),
		jetstream.WithExpectStream(p.stream),
	)
	if err != nil {
		return fmt.Errorf("publish %s to JetStream: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("round_id", payload.RoundID).
		Uint64("sequence", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("round result stored")
	return nil
}

// PublishModeChanged publishes a mode change on <prefix>.<table>.mode.changed.
func (p *NATSPublisher) PublishModeChanged(tableID uuid.UUID, payload events.ModeChangedPayload) error {
	return p.publishJSON(fmt.Sprintf("%s.%s.mode.changed", p.prefix, tableID), payload)
}

func (p *NATSPublisher) publishJSON(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	if err := p.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}
