// Package dlq persists callbacks that could not be forwarded to the search
// engine so they can be inspected and replayed later.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/devicepulse/devicepulse/internal/metrics"
)

// FailedCallback captures delivery failure details for replay.
type FailedCallback struct {
	Timestamp   time.Time       `json:"timestamp"`
	Kind        string          `json:"kind"`
	Body        json.RawMessage `json:"body"`
	Error       string          `json:"error"`
	Reason      string          `json:"reason"`
	Attempts    int             `json:"attempts"`
	LastAttempt time.Time       `json:"last_attempt"`
}

// Queue writes failed callbacks to disk for later analysis/replay.
type Queue struct {
	basePath string
	mu       sync.Mutex
	written  uint64
}

// NewQueue creates a DLQ that writes to the specified directory.
func NewQueue(basePath string) (*Queue, error) {
	if basePath == "" {
		basePath = "/var/lib/devicepulse/dlq"
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create dlq directory: %w", err)
	}

	return &Queue{
		basePath: basePath,
	}, nil
}

// Write records a failed callback to the dead-letter queue.
func (q *Queue) Write(ctx context.Context, kind string, body []byte, err error, reason string) error {
	if q == nil {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	failed := FailedCallback{
		Timestamp:   time.Now().UTC(),
		Kind:        kind,
		Body:        json.RawMessage(body),
		Error:       err.Error(),
		Reason:      reason,
		Attempts:    1,
		LastAttempt: time.Now().UTC(),
	}

	// Create timestamped filename
	filename := fmt.Sprintf("failed_%d_%d.json",
		time.Now().Unix(),
		q.written,
	)
	filePath := filepath.Join(q.basePath, filename)

	data, marshalErr := json.MarshalIndent(failed, "", "  ")
	if marshalErr != nil {
		log.Printf("ERROR: failed to marshal DLQ entry: %v", marshalErr)
		return marshalErr
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		log.Printf("ERROR: failed to write DLQ entry: %v", err)
		return err
	}

	q.written++
	metrics.DLQWrites.WithLabelValues(reason).Inc()
	log.Printf("DLQ: wrote failed callback to %s (reason: %s)", filename, reason)

	return nil
}

// Stats returns DLQ metrics.
func (q *Queue) Stats() map[string]interface{} {
	if q == nil {
		return map[string]interface{}{
			"enabled": false,
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	// Count files in directory
	files, err := os.ReadDir(q.basePath)
	if err != nil {
		log.Printf("ERROR: failed to read DLQ directory: %v", err)
		return map[string]interface{}{
			"enabled":       true,
			"written":       q.written,
			"pending_files": 0,
			"error":         err.Error(),
		}
	}

	return map[string]interface{}{
		"enabled":       true,
		"written":       q.written,
		"pending_files": len(files),
		"base_path":     q.basePath,
	}
}

// List returns failed callbacks from the queue.
func (q *Queue) List(ctx context.Context, limit int) ([]FailedCallback, error) {
	if q == nil {
		return nil, fmt.Errorf("dlq not enabled")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	files, err := os.ReadDir(q.basePath)
	if err != nil {
		return nil, fmt.Errorf("read dlq directory: %w", err)
	}

	var callbacks []FailedCallback
	count := 0

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		if limit > 0 && count >= limit {
			break
		}

		filePath := filepath.Join(q.basePath, file.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			log.Printf("ERROR: failed to read DLQ file %s: %v", file.Name(), err)
			continue
		}

		var failed FailedCallback
		if err := json.Unmarshal(data, &failed); err != nil {
			log.Printf("ERROR: failed to parse DLQ file %s: %v", file.Name(), err)
			continue
		}

		callbacks = append(callbacks, failed)
		count++
	}

	return callbacks, nil
}

// Delete removes a failed callback from the queue.
func (q *Queue) Delete(ctx context.Context, timestamp int64) error {
	if q == nil {
		return fmt.Errorf("dlq not enabled")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	// Find file with matching timestamp
	pattern := filepath.Join(q.basePath, fmt.Sprintf("failed_%d_*.json", timestamp))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("search dlq files: %w", err)
	}

	if len(matches) == 0 {
		return fmt.Errorf("callback not found")
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			return fmt.Errorf("delete dlq file: %w", err)
		}
		log.Printf("DLQ: deleted %s", filepath.Base(match))
	}

	return nil
}

// Purge removes all callbacks from the queue.
func (q *Queue) Purge(ctx context.Context) error {
	if q == nil {
		return fmt.Errorf("dlq not enabled")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	files, err := os.ReadDir(q.basePath)
	if err != nil {
		return fmt.Errorf("read dlq directory: %w", err)
	}

	deleted := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		filePath := filepath.Join(q.basePath, file.Name())
		if err := os.Remove(filePath); err != nil {
			log.Printf("ERROR: failed to delete DLQ file %s: %v", file.Name(), err)
			continue
		}
		deleted++
	}

	log.Printf("DLQ: purged %d callbacks", deleted)
	return nil
}
