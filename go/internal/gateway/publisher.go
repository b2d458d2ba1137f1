package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/rapidpoker/go/internal/game"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// NATSPublisherConfig holds configuration for the game event feed.
// Setting StreamName switches publishing to a memory backed JetStream stream.
type NATSPublisherConfig struct {
	URL            string
	SubjectPrefix  string
	StreamName     string
	StreamMaxAge   time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration
	PublishTimeout time.Duration
}

// DefaultNATSPublisherConfig returns default publisher configuration
func DefaultNATSPublisherConfig() NATSPublisherConfig {
	return NATSPublisherConfig{
		URL:            nats.DefaultURL,
		SubjectPrefix:  "poker.games",
		StreamMaxAge:   time.Hour,
		MaxReconnects:  -1, // Infinite
		ReconnectWait:  2 * time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

// eventEnvelope is the JSON body of every published game event
type eventEnvelope struct {
	EventID   string          `json:"eventId"`
	EventType game.EventType  `json:"eventType"`
	GameID    string          `json:"gameId"`
	PlayerID  string          `json:"playerId,omitempty"`
	Version   uint64          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NATSPublisher publishes committed game events to NATS
type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config NATSPublisherConfig
}

// NewNATSPublisher connects to NATS and, when a stream is configured,
// makes sure the stream exists
func NewNATSPublisher(cfg NATSPublisherConfig) (*NATSPublisher, error) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultNATSPublisherConfig().SubjectPrefix
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultNATSPublisherConfig().PublishTimeout
	}

	opts := []nats.Option{
		nats.Name("rapidpoker"),
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

	p := &NATSPublisher{nc: nc, config: cfg}

	if cfg.StreamName != "" {
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create JetStream context: %w", err)
		}
		p.js = js

		ctx, cancel := context.WithTimeout(context.Background(), cfg.PublishTimeout)
		defer cancel()
		if err := p.ensureStream(ctx); err != nil {
			nc.Close()
			return nil, fmt.Errorf("ensure stream: %w", err)
		}
	}

	log.Info().
		Str("url", nc.ConnectedUrl()).
		Str("subject_prefix", cfg.SubjectPrefix).
		Str("stream", cfg.StreamName).
		Msg("game event publisher connected")

	return p, nil
}

func (p *NATSPublisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Planning poker game events",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.StreamMaxAge,
		Storage:     jetstream.MemoryStorage,
		Replicas:    1,
	}

	if _, err := p.js.CreateOrUpdateStream(ctx, sc); err != nil {
		return fmt.Errorf("create or update stream: %w", err)
	}
	log.Info().Str("stream", p.config.StreamName).Msg("JetStream stream ready")
	return nil
}

// Publish sends the event on <prefix>.<gameId>.<eventType>
func (p *NATSPublisher) Publish(ctx context.Context, event game.Event) error {
	subject, data, err := encodeEnvelope(p.config.SubjectPrefix, event)
	if err != nil {
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(event.Type)},
			"Game-ID":    []string{event.GameID},
		},
	}

	if p.js == nil {
		if err := p.nc.PublishMsg(msg); err != nil {
			return fmt.Errorf("publish to NATS: %w", err)
		}
		log.Debug().Str("subject", subject).Msg("published game event")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	ack, err := p.js.PublishMsg(ctx, msg, jetstream.WithExpectStream(p.config.StreamName))
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Uint64("sequence", ack.Sequence).
		Str("stream", ack.Stream).
		Msg("published game event to JetStream")
	return nil
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}

// encodeEnvelope builds the subject and body for an event
func encodeEnvelope(prefix string, event game.Event) (string, []byte, error) {
	payload := json.RawMessage("null")
	if event.Game != nil {
		raw, err := json.Marshal(event.Game)
		if err != nil {
			return "", nil, fmt.Errorf("marshal game: %w", err)
		}
		payload = raw
	}

	env := eventEnvelope{
		EventID:   uuid.New().String(),
		EventType: event.Type,
		GameID:    event.GameID,
		PlayerID:  event.PlayerID,
		Version:   event.Version,
		Timestamp: event.OccurredAt.UTC(),
		Payload:   payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", nil, fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s.%s", prefix, subjectToken(event.GameID), event.Type)
	return subject, data, nil
}

var subjectReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// subjectToken makes a game id safe to use as a single subject token
func subjectToken(s string) string {
	return subjectReplacer.Replace(s)
}
