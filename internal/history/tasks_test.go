package history_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printquote/internal/history"
)

type memStore struct {
	appends []appendCall
	err     error
}

type appendCall struct {
	quoteID uuid.UUID
	action  string
	payload []byte
}

func (m *memStore) AppendHistory(_ context.Context, quoteID uuid.UUID, action string, payload []byte) error {
	if m.err != nil {
		return m.err
	}
	m.appends = append(m.appends, appendCall{quoteID: quoteID, action: action, payload: payload})
	return nil
}

func TestAppendTaskRoundTrip(t *testing.T) {
	quoteID := uuid.New()
	task, err := history.NewAppendTask(history.AppendPayload{
		QuoteID: quoteID,
		Action:  "PDF_GENERATED",
		Payload: json.RawMessage(`{"fileName":"Q00042-0.pdf"}`),
	})
	require.NoError(t, err)
	require.Equal(t, history.TaskTypeAppend, task.Type())

	store := &memStore{}
	worker := history.Worker{Store: store, Logger: zerolog.Nop()}
	require.NoError(t, worker.ProcessTask(context.Background(), task))
	require.Len(t, store.appends, 1)
	require.Equal(t, quoteID, store.appends[0].quoteID)
	require.Equal(t, "PDF_GENERATED", store.appends[0].action)
	require.JSONEq(t, `{"fileName":"Q00042-0.pdf"}`, string(store.appends[0].payload))
}

func TestWorkerRetriesStoreFailures(t *testing.T) {
	task, err := history.NewAppendTask(history.AppendPayload{QuoteID: uuid.New(), Action: "EMAIL_SENT"})
	require.NoError(t, err)

	worker := history.Worker{Store: &memStore{err: errors.New("db down")}, Logger: zerolog.Nop()}
	err = worker.ProcessTask(context.Background(), task)
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestWorkerSkipsMalformedPayloads(t *testing.T) {
	worker := history.Worker{Store: &memStore{}, Logger: zerolog.Nop()}
	err := worker.ProcessTask(context.Background(), asynq.NewTask(history.TaskTypeAppend, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
