package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/example/ridelink/internal/config"
	"github.com/example/ridelink/internal/events"
	"github.com/example/ridelink/internal/logging"
	"github.com/example/ridelink/internal/scores"
	"github.com/example/ridelink/internal/state"
	"github.com/example/ridelink/internal/trust"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ridelink_consumer_messages_consumed_total",
		Help: "Total marketplace events consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ridelink_consumer_messages_invalid_total",
		Help: "Total events that could not be decoded",
	})
	scoreMismatches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ridelink_consumer_score_mismatches_total",
		Help: "Review events whose published trust score differed from the recomputed one",
	})
	indexUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ridelink_consumer_index_updates_total",
		Help: "Total successful score index updates",
	})
	indexErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ridelink_consumer_index_errors_total",
		Help: "Total score index updates that failed after retries",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, scoreMismatches, indexUpdates, indexErrors)
}

func main() {
	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	index := scores.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisScoreKey)

	// metrics and health
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := index.Ping(r.Context()); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", zap.String("addr", cfg.MetricsAddr))
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroup, MinBytes: 10e3, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = index.Close()
	}()

	logger.Info("consumer listening", zap.String("topic", cfg.KafkaTopic), zap.Strings("brokers", cfg.KafkaBrokers), zap.String("group", cfg.KafkaGroup))

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down consumer")
				return
			}
			logger.Warn("kafka read error", zap.Error(err), zap.Duration("backoff", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
		msgsConsumed.Inc()

		if err := handleMessage(ctx, index, m, logger); err != nil {
			if errors.Is(err, errInvalidEvent) {
				msgsInvalid.Inc()
			} else {
				indexErrors.Inc()
			}
			logger.Warn("event not applied", zap.Int64("offset", m.Offset), zap.String("key", string(m.Key)), zap.Error(err))
		}
	}
}

// ScoreWriter is the part of the score index the consumer writes to.
type ScoreWriter interface {
	Put(ctx context.Context, e scores.Entry) error
}

var errInvalidEvent = errors.New("invalid event")

// handleMessage applies review events to the score index. Other event
// types are ignored.
func handleMessage(ctx context.Context, w ScoreWriter, m kafka.Message, logger *zap.Logger) error {
	ev, err := events.Decode(m)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidEvent, err)
	}
	if ev.Type != state.EventReviewSubmitted {
		return nil
	}
	e, ok, err := entryFor(ev)
	if err != nil {
		return err
	}
	if !ok {
		scoreMismatches.Inc()
		logger.Warn("published trust score differs from recomputed score",
			zap.String("driver_id", ev.DriverID),
			zap.Float64("published", ev.TrustScore),
			zap.Float64("recomputed", e.Score))
	}
	if err := updateWithRetry(ctx, w, e, 3, 200*time.Millisecond); err != nil {
		return err
	}
	indexUpdates.Inc()
	return nil
}

// entryFor recomputes the driver's score from the review history carried by
// the event. ok is false when the recomputed score disagrees with the
// published one; the recomputed score wins.
func entryFor(ev state.Event) (scores.Entry, bool, error) {
	if ev.DriverID == "" {
		return scores.Entry{}, false, fmt.Errorf("%w: review event without driver", errInvalidEvent)
	}
	score := trust.Compute(ev.Reviews)
	e := scores.Entry{DriverID: ev.DriverID, Score: score, ReviewCount: len(ev.Reviews), Updated: ev.At}
	return e, score == ev.TrustScore, nil
}

// updateWithRetry writes e, doubling the delay after each failed attempt.
func updateWithRetry(ctx context.Context, w ScoreWriter, e scores.Entry, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = w.Put(ctx, e); err == nil {
			return nil
		}
		if i == attempts-1 || !sleep(ctx, delay) {
			break
		}
		delay *= 2
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
