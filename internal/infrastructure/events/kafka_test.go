package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shoplens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(ProducerConfig{Topic: "t"})
	assert.Error(t, err)

	_, err = NewKafkaPublisher(ProducerConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	p, err := NewKafkaPublisher(ProducerConfig{Brokers: []string{"localhost:9092"}, Topic: "photos"})
	require.NoError(t, err)
	assert.Equal(t, "photos", p.topic)
}

func TestPublishBatchCompleted(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w, topic: "photos"}

	summary := domain.BatchSummary{BatchID: "batch-1", TotalImages: 2, Matched: 1, Degraded: 1, AutoAssignable: 1}
	results := []domain.ImageAnalysisResult{
		{
			ImageID:  "img_1",
			ImageURL: "https://cdn.example.com/1.jpg",
			Matches: []domain.MatchCandidate{
				{ProductID: "101", Confidence: 95},
				{ProductID: "102", Confidence: 40},
			},
			AutoAssignRecommended: true,
		},
		{ImageID: "img_2", Matches: []domain.MatchCandidate{}},
	}

	require.NoError(t, p.PublishBatchCompleted(context.Background(), summary, results))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "batch-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, EventTypeBatchCompleted, string(msg.Headers[0].Value))

	var event BatchCompletedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, EventTypeBatchCompleted, event.EventType)
	assert.Equal(t, summary, event.Summary)
	require.Len(t, event.Images, 2)
	assert.Equal(t, "101", event.Images[0].TopProductID)
	assert.Equal(t, 95, event.Images[0].TopConfidence)
	assert.True(t, event.Images[0].AutoAssignable)
	assert.Empty(t, event.Images[1].TopProductID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestPublishBatchCompleted_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, topic: "photos"}

	err := p.PublishBatchCompleted(context.Background(), domain.BatchSummary{BatchID: "b"}, nil)
	assert.ErrorContains(t, err, "broker down")
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNoopPublisher(t *testing.T) {
	var p domain.EventPublisher = NoopPublisher{}
	assert.NoError(t, p.PublishBatchCompleted(context.Background(), domain.BatchSummary{}, nil))
}
