// Package queue provides a Redis-based batch queue using Asynq
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// Task types
	TypeBatchProcess = "batch:process"

	// Queue names
	QueueDefault  = "default"
	QueueHigh     = "high"
	QueueLow      = "low"
	QueueCritical = "critical"
)

// BatchPayload is the payload for a batch processing task
type BatchPayload struct {
	BatchID   uuid.UUID `json:"batch_id"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// Config holds Redis queue configuration
type Config struct {
	RedisURL  string
	RedisAddr string
	Password  string
	DB        int
}

// Queue is a Redis-based batch queue
type Queue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redisOpt  asynq.RedisConnOpt
}

// New creates a new Queue
func New(cfg *Config) (*Queue, error) {
	redisOpt, err := connOpt(cfg.RedisURL, cfg.RedisAddr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, err
	}

	return &Queue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		redisOpt:  redisOpt,
	}, nil
}

func connOpt(redisURL, redisAddr, password string, db int) (asynq.RedisConnOpt, error) {
	if redisURL != "" {
		opt, err := asynq.ParseRedisURI(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		return opt, nil
	}

	if redisAddr != "" {
		return asynq.RedisClientOpt{
			Addr:         redisAddr,
			Password:     password,
			DB:           db,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		}, nil
	}

	return nil, fmt.Errorf("redis URL or address is required")
}

// Enqueue adds a batch to the queue
func (q *Queue) Enqueue(ctx context.Context, batchID uuid.UUID, priority int) error {
	payload := BatchPayload{
		BatchID:   batchID,
		Priority:  priority,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeBatchProcess, data)

	// Set queue based on priority
	queueName := QueueDefault
	if priority >= 10 {
		queueName = QueueCritical
	} else if priority >= 5 {
		queueName = QueueHigh
	} else if priority < 0 {
		queueName = QueueLow
	}

	opts := []asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(3),
		// A large batch at one call per candidate can run for hours.
		asynq.Timeout(6 * time.Hour),
		asynq.Retention(24 * time.Hour),
	}

	info, err := q.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Printf("queue: enqueued batch %s to queue %s (task_id: %s)", batchID, queueName, info.ID)
	return nil
}

// GetRedisOpt returns the Redis client options for creating a server
func (q *Queue) GetRedisOpt() asynq.RedisConnOpt {
	return q.redisOpt
}

// GetQueueStats returns queue statistics
func (q *Queue) GetQueueStats(ctx context.Context) (map[string]*asynq.QueueInfo, error) {
	queues := []string{QueueDefault, QueueHigh, QueueLow, QueueCritical}
	stats := make(map[string]*asynq.QueueInfo)

	for _, queue := range queues {
		info, err := q.inspector.GetQueueInfo(queue)
		if err != nil {
			// Queue might not exist yet
			continue
		}
		stats[queue] = info
	}

	return stats, nil
}

// Close closes the queue client
func (q *Queue) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}

// ParsePayload parses a batch payload from task data
func ParsePayload(data []byte) (*BatchPayload, error) {
	var payload BatchPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}
