package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/devicepulse/devicepulse/internal/metrics"
)

// StreamName is the JetStream stream holding failed callbacks.
const StreamName = "DEVICEPULSE_DLQ"

// subjectPrefix scopes DLQ subjects; the failure reason is appended per message.
const subjectPrefix = "devicepulse.dlq"

// JetStreamQueue writes failed callbacks to NATS JetStream for centralized DLQ.
// Safe for use across multiple bridge instances.
type JetStreamQueue struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	stream  jetstream.Stream
	written uint64
}

// NewJetStreamQueue connects to NATS and ensures the DLQ stream exists.
func NewJetStreamQueue(ctx context.Context, url string) (*JetStreamQueue, error) {
	conn, err := nats.Connect(url,
		nats.Name("devicepulse-dlq"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: DLQ NATS connection lost: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("DLQ: NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{subjectPrefix + ".>"},
		MaxAge:    7 * 24 * time.Hour,
		MaxBytes:  1024 * 1024 * 1024, // 1GB
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}

	log.Printf("DLQ: JetStream stream %s ready", StreamName)

	return &JetStreamQueue{
		conn:   conn,
		js:     js,
		stream: stream,
	}, nil
}

// Write publishes a failed callback to the JetStream DLQ.
func (q *JetStreamQueue) Write(ctx context.Context, kind string, body []byte, err error, reason string) error {
	if q == nil {
		return nil
	}

	failed := FailedCallback{
		Timestamp:   time.Now().UTC(),
		Kind:        kind,
		Body:        json.RawMessage(body),
		Error:       err.Error(),
		Reason:      reason,
		Attempts:    1,
		LastAttempt: time.Now().UTC(),
	}

	data, marshalErr := json.Marshal(failed)
	if marshalErr != nil {
		log.Printf("ERROR: failed to marshal DLQ entry: %v", marshalErr)
		return marshalErr
	}

	// Subject format: devicepulse.dlq.<reason>
	subject := fmt.Sprintf("%s.%s", subjectPrefix, reason)

	if _, pubErr := q.js.Publish(ctx, subject, data); pubErr != nil {
		log.Printf("ERROR: failed to publish DLQ entry: %v", pubErr)
		return pubErr
	}

	atomic.AddUint64(&q.written, 1)
	metrics.DLQWrites.WithLabelValues(reason).Inc()
	log.Printf("DLQ: published failed callback (reason: %s)", reason)

	return nil
}

// Stats returns DLQ metrics from JetStream.
func (q *JetStreamQueue) Stats(ctx context.Context) map[string]interface{} {
	if q == nil {
		return map[string]interface{}{
			"enabled": false,
			"backend": "jetstream",
		}
	}

	info, err := q.stream.Info(ctx)
	if err != nil {
		log.Printf("ERROR: failed to get DLQ stream info: %v", err)
		return map[string]interface{}{
			"enabled":       true,
			"backend":       "jetstream",
			"written_local": atomic.LoadUint64(&q.written),
			"error":         err.Error(),
		}
	}

	return map[string]interface{}{
		"enabled":        true,
		"backend":        "jetstream",
		"written_local":  atomic.LoadUint64(&q.written),
		"total_messages": info.State.Msgs,
		"total_bytes":    info.State.Bytes,
		"first_seq":      info.State.FirstSeq,
		"last_seq":       info.State.LastSeq,
		"consumer_count": info.State.Consumers,
	}
}

// List returns failed callbacks from the JetStream DLQ.
func (q *JetStreamQueue) List(ctx context.Context, limit int) ([]FailedCallback, error) {
	if q == nil {
		return nil, fmt.Errorf("dlq not enabled")
	}

	if limit <= 0 {
		limit = 100
	}

	// Create an ephemeral consumer to read messages
	consumer, err := q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: subjectPrefix + ".>",
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxDeliver:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("create list consumer: %w", err)
	}

	var callbacks []FailedCallback
	msgs, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	for msg := range msgs.Messages() {
		var failed FailedCallback
		if err := json.Unmarshal(msg.Data(), &failed); err != nil {
			log.Printf("ERROR: failed to parse DLQ message: %v", err)
			continue
		}
		callbacks = append(callbacks, failed)
	}

	if msgs.Error() != nil {
		log.Printf("WARN: fetch completed with error: %v", msgs.Error())
	}

	return callbacks, nil
}

// Purge removes all callbacks from the DLQ stream.
func (q *JetStreamQueue) Purge(ctx context.Context) error {
	if q == nil {
		return fmt.Errorf("dlq not enabled")
	}

	if err := q.stream.Purge(ctx); err != nil {
		return fmt.Errorf("purge dlq stream: %w", err)
	}

	log.Printf("DLQ: purged all messages from stream")
	return nil
}

// Close drains the NATS connection.
func (q *JetStreamQueue) Close() {
	if q == nil || q.conn == nil {
		return
	}

	if err := q.conn.Drain(); err != nil {
		log.Printf("WARN: DLQ NATS drain failed: %v", err)
	}
}
