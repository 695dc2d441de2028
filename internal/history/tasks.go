// Package history defers quote history appends that failed their direct
// write to a Redis-backed task queue so the audit trail stays complete.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printquote/internal/obs"
)

// TaskTypeAppend identifies deferred history append tasks.
const TaskTypeAppend = "history:append"

// AppendPayload carries a single history entry awaiting persistence.
type AppendPayload struct {
	QuoteID uuid.UUID       `json:"quoteId"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// NewAppendTask builds an asynq task for a deferred history append.
func NewAppendTask(p AppendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("history: marshal append payload: %w", err)
	}
	return asynq.NewTask(TaskTypeAppend, data), nil
}

// Store persists history entries.
type Store interface {
	AppendHistory(ctx context.Context, quoteID uuid.UUID, action string, payload []byte) error
}

// Enqueuer hands failed history appends to the retry queue.
type Enqueuer struct {
	Client   *asynq.Client
	Queue    string
	MaxRetry int
	Logger   zerolog.Logger
}

// Enqueue schedules a deferred append. Failures are logged, never returned:
// the caller already has a committed primary mutation.
func (e *Enqueuer) Enqueue(ctx context.Context, p AppendPayload) {
	if e == nil || e.Client == nil {
		return
	}
	task, err := NewAppendTask(p)
	if err != nil {
		e.Logger.Error().Err(err).
			Str("quote_id", p.QuoteID.String()).
			Str("action", p.Action).
			Msg("build history append task")
		return
	}
	opts := []asynq.Option{asynq.Queue(e.queue()), asynq.MaxRetry(e.maxRetry())}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		e.Logger.Error().Err(err).
			Str("quote_id", p.QuoteID.String()).
			Str("action", p.Action).
			Msg("enqueue history append")
		return
	}
	if obs.HistoryAppendRetries != nil {
		obs.HistoryAppendRetries.Inc()
	}
	e.Logger.Warn().
		Str("quote_id", p.QuoteID.String()).
		Str("action", p.Action).
		Msg("history append deferred to retry queue")
}

func (e *Enqueuer) queue() string {
	if e.Queue == "" {
		return "history"
	}
	return e.Queue
}

func (e *Enqueuer) maxRetry() int {
	if e.MaxRetry <= 0 {
		return 5
	}
	return e.MaxRetry
}

// Worker processes deferred history appends.
type Worker struct {
	Store  Store
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (w Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var p AppendPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		// Malformed payloads never succeed; skip retries.
		w.Logger.Error().Err(err).Msg("decode history append task")
		return fmt.Errorf("history: decode append task: %w", asynq.SkipRetry)
	}
	if err := w.Store.AppendHistory(ctx, p.QuoteID, p.Action, p.Payload); err != nil {
		return fmt.Errorf("history: append %s for quote %s: %w", p.Action, p.QuoteID, err)
	}
	w.Logger.Info().
		Str("quote_id", p.QuoteID.String()).
		Str("action", p.Action).
		Msg("deferred history append persisted")
	return nil
}
