package listingevents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"diasporan-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
	"gorm.io/gorm"
)

// Message is one listing event on the bus. Key is the listing id so a listing's
// events stay ordered within a partition.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
	Time    time.Time
}

type Publisher interface {
	Publish(ctx context.Context, msgs ...Message) error
	Close() error
}

// KafkaPublisher writes listing events with a kafka-go Writer.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  compress.Snappy,
		MaxAttempts:  5,
		BatchTimeout: 50 * time.Millisecond,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error().Str("component", "kafka").Msgf(msg, args...)
		}),
	}}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, msgs ...Message) error {
	out := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		km := kafka.Message{Key: []byte(m.Key), Value: m.Value, Time: m.Time}
		for k, v := range m.Headers {
			km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		out = append(out, km)
	}
	return p.writer.WriteMessages(ctx, out...)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Relay drains unpublished listing events to a Publisher and stamps published_at.
// Delivery is at least once: a crash between publish and stamp republishes the batch.
type Relay struct {
	DB        *gorm.DB
	Publisher Publisher
	Interval  time.Duration
	BatchSize int
}

// envelope is the wire shape consumers see.
type envelope struct {
	EventID   string          `json:"event_id"`
	ListingID string          `json:"listing_id"`
	EventType string          `json:"event_type"`
	ActorID   *string         `json:"actor_id,omitempty"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// Run flushes on every tick until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Dur("interval", interval).Msg("Listing event relay started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Listing event relay stopped")
			return
		case <-ticker.C:
			if n, err := r.Flush(ctx); err != nil {
				log.Error().Err(err).Msg("Listing event relay flush failed")
			} else if n > 0 {
				log.Debug().Int("published", n).Msg("Listing events relayed")
			}
		}
	}
}

// Flush publishes one batch of pending events in creation order and returns how
// many were published.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	var pending []domain.ListingEventRecord
	err := r.DB.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at ASC").Order("event_id ASC").
		Limit(limit).
		Find(&pending).Error
	if err != nil || len(pending) == 0 {
		return 0, err
	}

	msgs := make([]Message, 0, len(pending))
	ids := make([]string, 0, len(pending))
	for _, e := range pending {
		env := envelope{
			EventID:   e.EventID.String(),
			ListingID: e.ListingID.String(),
			EventType: e.EventType,
			Data:      json.RawMessage(e.EventData),
			CreatedAt: e.CreatedAt.UTC(),
		}
		if e.ActorID != nil {
			actor := e.ActorID.String()
			env.ActorID = &actor
		}
		value, err := json.Marshal(env)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, Message{
			Key:     env.ListingID,
			Value:   value,
			Headers: map[string]string{"event-type": e.EventType},
			Time:    e.CreatedAt,
		})
		ids = append(ids, env.EventID)
	}

	if err := r.Publisher.Publish(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publish listing events: %w", err)
	}
	now := time.Now().UTC()
	if err := r.DB.WithContext(ctx).Model(&domain.ListingEventRecord{}).
		Where("event_id IN ?", ids).
		Update("published_at", now).Error; err != nil {
		return 0, fmt.Errorf("mark listing events published: %w", err)
	}
	return len(msgs), nil
}
