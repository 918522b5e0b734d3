package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLogger captures events for assertions
type recordingLogger struct {
	events []*Event
	err    error
}

func (r *recordingLogger) Log(ctx context.Context, event *Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingLogger) Close() error { return nil }

func TestLogBestEffort(t *testing.T) {
	ctx := context.Background()

	t.Run("nil logger is a no-op", func(t *testing.T) {
		LogBestEffort(ctx, nil, NewEvent(EventTypeMemberAdd, EventStatusSuccess))
	})

	t.Run("record success", func(t *testing.T) {
		rec := &recordingLogger{}
		LogBestEffort(ctx, rec, NewEvent(EventTypeMemberAdd, EventStatusSuccess))
		assert.Len(t, rec.events, 1)
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		rec := &recordingLogger{err: fmt.Errorf("sink down")}
		// Must not panic or propagate
		LogBestEffort(ctx, rec, NewEvent(EventTypeMemberAdd, EventStatusSuccess))
	})
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.jsonl")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, logger.Log(ctx, NewEvent(EventTypeInvitationCreate, EventStatusSuccess).WithOrganization(1)))
	require.NoError(t, logger.Log(ctx, NewEvent(EventTypeInvitationAccept, EventStatusSuccess).WithOrganization(1)))
	require.NoError(t, logger.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		lines = append(lines, event)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, lines, 2)
	assert.Equal(t, EventTypeInvitationCreate, lines[0].EventType)
	assert.Equal(t, EventTypeInvitationAccept, lines[1].EventType)
}

func TestMultiLogger(t *testing.T) {
	ctx := context.Background()

	t.Run("fans out to all sinks", func(t *testing.T) {
		a, b := &recordingLogger{}, &recordingLogger{}
		multi := NewMultiLogger(a, b)

		require.NoError(t, multi.Log(ctx, NewEvent(EventTypeOrgCreate, EventStatusSuccess)))
		assert.Len(t, a.events, 1)
		assert.Len(t, b.events, 1)
	})

	t.Run("one failing sink does not stop the others", func(t *testing.T) {
		failing := &recordingLogger{err: fmt.Errorf("sink down")}
		healthy := &recordingLogger{}
		multi := NewMultiLogger(failing, healthy)

		err := multi.Log(ctx, NewEvent(EventTypeOrgCreate, EventStatusSuccess))
		require.Error(t, err)
		assert.Len(t, healthy.events, 1)
	})
}
