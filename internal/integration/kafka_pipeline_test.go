//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/crime-watch/internal/adapter/kafka"
	"github.com/couchcryptid/crime-watch/internal/config"
	"github.com/couchcryptid/crime-watch/internal/dashboard"
	"github.com/couchcryptid/crime-watch/internal/domain"
	"github.com/couchcryptid/crime-watch/internal/observability"
	"github.com/couchcryptid/crime-watch/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	testReportTopic = "test-crime-reports"
	testStatusTopic = "test-crime-report-status"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("crime-watch-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type emptyFetcher struct{}

func (emptyFetcher) FetchReports(context.Context) ([]domain.CrimeReport, error) {
	return nil, nil
}

func testConfig(broker string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaReportTopic:   testReportTopic,
		KafkaStatusTopic:   testStatusTopic,
		KafkaGroupID:       fmt.Sprintf("test-dashboard-%d", time.Now().UnixNano()),
		BatchSize:          10,
		BatchFlushInterval: 2 * time.Second,
	}
}

func report(id, incidentType, date string) domain.CrimeReport {
	return domain.CrimeReport{
		ID:               id,
		IncidentType:     incidentType,
		IncidentSeverity: "Medium",
		Date:             date,
		Time:             "09:30:00",
		Status:           domain.StatusNew,
		Location:         domain.NewPoint(22.30, 70.80),
		CreatedAt:        date + "T09:45:00Z",
	}
}

// TestReportIngestion publishes reports to the report topic and checks they
// reach the dashboard through the pipeline. Malformed messages are skipped.
func TestReportIngestion(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)
	cfg := testConfig(broker)

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testReportTopic}
	t.Cleanup(func() { _ = producer.Close() })

	var msgs []kafkago.Message
	for _, r := range []domain.CrimeReport{
		report("CR-1", "Theft", "2024-04-26"),
		report("CR-2", "Assault", "2024-04-25"),
	} {
		payload, err := json.Marshal(r)
		require.NoError(t, err)
		msgs = append(msgs, kafkago.Message{Key: []byte(r.ID), Value: payload})
	}
	msgs = append(msgs, kafkago.Message{Key: []byte("CR-bad"), Value: []byte(`{"id":`)})
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	metrics := observability.NewMetricsForTesting()
	dash := dashboard.New(dashboard.Options{
		Fetcher: emptyFetcher{},
		Metrics: metrics,
		Logger:  discardLogger(),
	})

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	p := pipeline.New(reader, pipeline.NewTransformer(discardLogger()), dash, discardLogger(), metrics, cfg.BatchSize)
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- p.Run(runCtx) }()

	require.Eventually(t, func() bool { return len(dash.Reports()) == 2 }, 60*time.Second, 250*time.Millisecond,
		"reports should be ingested into the dashboard")

	stop()
	require.NoError(t, <-done)

	got := dash.Reports()
	assert.Equal(t, "CR-1", got[0].ID)
	assert.Equal(t, "CR-2", got[1].ID)
	assert.ElementsMatch(t, []string{"Assault", "Theft"}, dash.IncidentTypes())
}

// TestStatusChangePublished updates a report's status on the dashboard and
// reads the resulting event back from the status topic.
func TestStatusChangePublished(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testStatusTopic)
	cfg := testConfig(broker)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	dash := dashboard.New(dashboard.Options{
		Fetcher:   emptyFetcher{},
		Publisher: writer,
		Metrics:   observability.NewMetricsForTesting(),
		Logger:    discardLogger(),
	})
	dash.Upsert([]domain.CrimeReport{report("CR-7", "Burglary", "2024-04-20")})

	updated, err := dash.UpdateStatus(ctx, "CR-7", domain.StatusUnderInvestigation)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderInvestigation, updated.Status)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testStatusTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from status topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "CR-7", string(msg.Key))
	assert.Equal(t, kafka.EventTypeStatusChanged, headers["event_type"])
	_, err = time.Parse(time.RFC3339, headers["changed_at"])
	assert.NoError(t, err, "changed_at should be valid RFC3339")

	var change domain.StatusChange
	require.NoError(t, json.Unmarshal(msg.Value, &change))
	assert.Equal(t, "CR-7", change.ReportID)
	assert.Equal(t, "Burglary", change.IncidentType)
	assert.Equal(t, domain.StatusNew, change.PreviousStatus)
	assert.Equal(t, domain.StatusUnderInvestigation, change.Status)
	assert.NotEmpty(t, change.EventID)
}
