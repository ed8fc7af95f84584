package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shoplens/backend/internal/domain"
)

// EventTypeBatchCompleted is the event_type header of batch summary events
const EventTypeBatchCompleted = "photo_identification.completed"

// messageWriter is the subset of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// KafkaPublisher announces finished identification batches on a Kafka topic
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a publisher writing to cfg.Topic
func NewKafkaPublisher(cfg ProducerConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return &KafkaPublisher{writer: writer, topic: cfg.Topic}, nil
}

// BatchCompletedEvent is the payload of a batch summary event
type BatchCompletedEvent struct {
	EventType string              `json:"event_type"`
	Summary   domain.BatchSummary `json:"summary"`
	Images    []ImageOutcome      `json:"images"`
	Timestamp time.Time           `json:"timestamp"`
}

// ImageOutcome is the per-image part of a batch event. Full match lists stay
// with the caller; consumers only need the top pick.
type ImageOutcome struct {
	ImageID        string `json:"image_id"`
	ImageURL       string `json:"image_url"`
	TopProductID   string `json:"top_product_id,omitempty"`
	TopConfidence  int    `json:"top_confidence"`
	AutoAssignable bool   `json:"auto_assignable"`
}

// PublishBatchCompleted publishes one summary message keyed by batch id
func (p *KafkaPublisher) PublishBatchCompleted(ctx context.Context, summary domain.BatchSummary, results []domain.ImageAnalysisResult) error {
	event := BatchCompletedEvent{
		EventType: EventTypeBatchCompleted,
		Summary:   summary,
		Images:    make([]ImageOutcome, 0, len(results)),
		Timestamp: time.Now().UTC(),
	}
	for _, r := range results {
		outcome := ImageOutcome{
			ImageID:        r.ImageID,
			ImageURL:       r.ImageURL,
			AutoAssignable: r.AutoAssignRecommended,
		}
		if len(r.Matches) > 0 {
			outcome.TopProductID = r.Matches[0].ProductID
			outcome.TopConfidence = r.Matches[0].Confidence
		}
		event.Images = append(event.Images, outcome)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal batch event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(summary.BatchID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeBatchCompleted)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish batch event to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event. Used when events are disabled.
type NoopPublisher struct{}

// PublishBatchCompleted does nothing
func (NoopPublisher) PublishBatchCompleted(context.Context, domain.BatchSummary, []domain.ImageAnalysisResult) error {
	return nil
}
