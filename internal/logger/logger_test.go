package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2)
	q.Push(Event{Message: "a"})
	q.Push(Event{Message: "b"})
	q.Push(Event{Message: "c"})

	events := q.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Message)
	assert.Equal(t, "c", events[1].Message)
	assert.Equal(t, 1, q.Dropped())
	assert.Equal(t, 0, q.Len())
}

func TestAppLoggerQueueLevel(t *testing.T) {
	q := NewQueue(16)
	log := NewAppLogger("forage", q, zerolog.Nop())

	log.Debug("hidden in user mode")
	log.Info("visible")
	log.Success("Found Bloodline: %s", "Buddha")

	events := q.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, LevelInfo, events[0].Level)
	assert.Equal(t, LevelSuccess, events[1].Level)
	assert.Equal(t, "Found Bloodline: Buddha", events[1].Message)
	assert.Equal(t, "forage", events[1].Source)

	log.SetQueueLevel(ParseLevel("Developer"))
	log.Debug("now visible")
	events = q.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, LevelDebug, events[0].Level)
}

func TestWithSharesQueueAndLevel(t *testing.T) {
	q := NewQueue(16)
	parent := NewAppLogger("app", q, zerolog.Nop())
	child := parent.With("reincarnation")

	parent.SetQueueLevel(LevelError)
	child.Warn("filtered")
	child.Critical("kept")

	events := q.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, "reincarnation", events[0].Source)
	assert.Equal(t, LevelCritical, events[0].Level)
}

func TestCriticalDoesNotExitAndReachesSink(t *testing.T) {
	var buf bytes.Buffer
	log := NewAppLogger("app", nil, zerolog.New(&buf))

	log.Critical("halting after %d errors", 5)

	assert.Contains(t, buf.String(), `"level":"fatal"`)
	assert.Contains(t, buf.String(), "halting after 5 errors")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("Developer"))
	assert.Equal(t, LevelInfo, ParseLevel("User"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
}
