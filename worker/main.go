package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/casting-pulse/internal/config"
	"github.com/DeafMist/casting-pulse/internal/csvio"
	"github.com/DeafMist/casting-pulse/internal/dedupe"
	"github.com/DeafMist/casting-pulse/internal/logger"
	"github.com/DeafMist/casting-pulse/internal/models"
	"github.com/DeafMist/casting-pulse/internal/normalize"
	"github.com/DeafMist/casting-pulse/internal/publish"
	"github.com/DeafMist/casting-pulse/internal/pulse"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// batch is everything fetched during one drain.
type batch struct {
	postings   []models.RawPosting
	messages   []kafka.Message
	rejected   int
	duplicates int
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err = run(ctx, log, cfg)
	stop()
	if err != nil {
		log.Error("worker run failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg *config.Worker) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // offsets are committed once the pulse is published
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic + "_dlq",
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	pub, err := publish.Open(ctx, cfg.OutputPath, cfg.Sinks, log)
	if err != nil {
		return fmt.Errorf("open sinks: %w", err)
	}
	defer pub.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", cfg.KafkaTopic+"_dlq"),
		slog.Duration("idle_timeout", cfg.IdleTimeout),
	)

	return runOnce(ctx, log, reader, dlqWriter, pub, cfg)
}

// runOnce drains the topic, builds one pulse from everything drained, publishes it and
// only then commits the consumed offsets.
func runOnce(ctx context.Context, log *slog.Logger, r messageReader, dlq messageWriter, sink publish.Sink, cfg *config.Worker) error {
	log, runID := logger.ForRun(log)
	scorer, err := normalize.ScorerByName(cfg.SentimentModel)
	if err != nil {
		return err
	}
	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	b, err := drain(ctx, log, r, dlq, cache, cfg)
	if err != nil {
		return fmt.Errorf("drain %s: %w", cfg.KafkaTopic, err)
	}
	if len(b.messages) == 0 {
		log.Info("no postings available")
		return nil
	}

	rows, err := pulse.NewBuilder(log, pulse.WithScorer(scorer)).Build(b.postings)
	if err != nil {
		return fmt.Errorf("build pulse: %w", err)
	}

	if err := sink.Publish(ctx, runID, rows); err != nil {
		return err
	}

	if err := r.CommitMessages(ctx, b.messages...); err != nil {
		return fmt.Errorf("commit offsets: %w", err)
	}

	log.Info("batch committed",
		slog.Int("messages", len(b.messages)),
		slog.Int("postings", len(b.postings)),
		slog.Int("rejected", b.rejected),
		slog.Int("duplicates", b.duplicates),
		slog.Int("rows", len(rows)),
	)
	return nil
}

// drain fetches messages until none arrives within the idle timeout or the record cap is
// reached. Malformed messages are diverted to the DLQ; redeliveries are skipped.
func drain(ctx context.Context, log *slog.Logger, r messageReader, dlq messageWriter, cache *dedupe.Cache, cfg *config.Worker) (*batch, error) {
	b := &batch{}
	for len(b.messages) < cfg.MaxRecords {
		fetchCtx, cancel := context.WithTimeout(ctx, cfg.IdleTimeout)
		msg, err := r.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				log.Debug("topic idle, closing batch", slog.Int("messages", len(b.messages)))
				break
			}
			return nil, err
		}
		b.messages = append(b.messages, msg)

		posting, err := decodePosting(msg.Value)
		if err != nil {
			if err := sendToDLQ(ctx, log, dlq, msg, err); err != nil {
				return nil, err
			}
			b.rejected++
			continue
		}

		key := messageKey(msg)
		if cache.IsSeen(key) {
			log.Debug("duplicate posting", slog.Int("partition", msg.Partition), slog.Int64("offset", msg.Offset))
			b.duplicates++
			continue
		}
		cache.MarkSeen(key)
		b.postings = append(b.postings, posting)
	}
	return b, nil
}

// decodePosting reads a JSON object into a RawPosting. Fields that are absent or not
// strings are left empty. Only a malformed payload or an unparseable date is rejected.
func decodePosting(value []byte) (models.RawPosting, error) {
	var fields map[string]any
	if err := json.Unmarshal(value, &fields); err != nil {
		return models.RawPosting{}, fmt.Errorf("decode posting: %w", err)
	}
	text := func(key string) string {
		s, _ := fields[key].(string)
		return s
	}

	p := models.RawPosting{
		PostedDate:      text(csvio.ColPostedDate),
		WorkLocation:    text(csvio.ColWorkLocation),
		ProjectType:     text(csvio.ColProjectType),
		RoleType:        text(csvio.ColRoleType),
		Union:           text(csvio.ColUnion),
		Rate:            text(csvio.ColRate),
		RoleDescription: text(csvio.ColRoleDescription),
	}
	if _, err := normalize.ParseDate(p.PostedDate); errors.Is(err, normalize.ErrInvalidDate) {
		return p, err
	}
	return p, nil
}

// messageKey prefers the producer's key, which identifies the posting; the payload hash
// covers unkeyed producers.
func messageKey(msg kafka.Message) string {
	if len(msg.Key) > 0 {
		return "k:" + string(msg.Key)
	}
	return "v:" + dedupe.Fingerprint(msg.Value)
}

func sendToDLQ(ctx context.Context, log *slog.Logger, dlq messageWriter, msg kafka.Message, cause error) error {
	log.Warn("rejecting posting, sending to DLQ",
		slog.Any("err", cause),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)

	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		lastErr = dlq.WriteMessages(ctx, dlqMsg)
		if lastErr == nil {
			return nil
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", lastErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("DLQ write exhausted retries: %w", lastErr)
}
