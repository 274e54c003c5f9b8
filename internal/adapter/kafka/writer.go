package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/bf-mission-map/internal/config"
	"github.com/couchcryptid/bf-mission-map/internal/domain"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every published message.
const (
	HeaderBuildID     = "build_id"
	HeaderLatestYear  = "latest_year"
	HeaderPublishedAt = "published_at"
)

// Writer publishes merged tables to a Kafka topic, one message per district.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes every district of the table in a single WriteMessages call.
// Messages are keyed by district name so a compacted topic keeps the latest row;
// all messages of one call share a build_id header.
func (w *Writer) Publish(ctx context.Context, table *domain.MergedTable) (int, error) {
	districts := table.Districts()
	if len(districts) == 0 {
		return 0, nil
	}
	latest, _ := table.LatestYear()
	publishedAt := domain.Now()
	buildID := uuid.NewString()

	msgs := make([]kafkago.Message, len(districts))
	for i := range districts {
		msg, err := serializeToMessage(districts[i], buildID, latest, publishedAt)
		if err != nil {
			return 0, err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("write %d messages to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Info("table published", "topic", w.writer.Topic, "messages", len(msgs), "build_id", buildID)
	return len(msgs), nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// districtMessage is the JSON value of a published message.
type districtMessage struct {
	Name     string              `json:"name"`
	Missions map[int]int         `json:"missions"`
	Total    int                 `json:"total"`
	Location *domain.Coordinates `json:"location"`
}

// serializeToMessage marshals a district row into a Kafka message.
func serializeToMessage(rec domain.DistrictRecord, buildID string, latestYear int, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(districtMessage{
		Name:     rec.Name,
		Missions: rec.Missions,
		Total:    rec.Total(),
		Location: rec.Location,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize district %q: %w", rec.Name, err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Name),
		Value: data,
		Time:  publishedAt,
		Headers: []kafkago.Header{
			{Key: HeaderBuildID, Value: []byte(buildID)},
			{Key: HeaderLatestYear, Value: []byte(strconv.Itoa(latestYear))},
			{Key: HeaderPublishedAt, Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
