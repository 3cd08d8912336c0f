package logger

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogBufferConcurrentAccess(t *testing.T) {
	var spill bytes.Buffer
	var spillMu sync.Mutex
	buffer := NewLogBuffer(100, lockedWriter{w: &spill, mu: &spillMu})

	var wg sync.WaitGroup
	numGoroutines := 10
	logsPerGoroutine := 100

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				err := buffer.Add("info", fmt.Sprintf("goroutine %d, iteration %d", id, j), nil)
				assert.NoError(t, err)
			}
		}(i)
	}

	// Concurrent reads
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = buffer.Recent(10)
			_, _ = buffer.Stats()
			time.Sleep(time.Millisecond)
		}
	}()

	wg.Wait()
	<-done

	total, spilled := buffer.Stats()
	assert.EqualValues(t, numGoroutines*logsPerGoroutine, total)
	assert.EqualValues(t, numGoroutines*logsPerGoroutine-100, spilled)
	assert.Len(t, buffer.Recent(0), 100)
}

func TestLogBuffer_RecentOrder(t *testing.T) {
	buffer := NewLogBuffer(3, nil)
	for i := 1; i <= 5; i++ {
		require.NoError(t, buffer.Add("info", fmt.Sprintf("m%d", i), nil))
	}

	recent := buffer.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "m3", recent[0].Message)
	assert.Equal(t, "m5", recent[2].Message)

	two := buffer.Recent(2)
	require.Len(t, two, 2)
	assert.Equal(t, "m4", two[0].Message)
	assert.Equal(t, "m5", two[1].Message)
}

func TestLogBuffer_RecentBeforeWrap(t *testing.T) {
	buffer := NewLogBuffer(10, nil)
	require.NoError(t, buffer.Add("info", "a", nil))
	require.NoError(t, buffer.Add("warn", "b", nil))

	recent := buffer.Recent(5)
	require.Len(t, recent, 2)
	assert.Equal(t, "a", recent[0].Message)
	assert.Equal(t, "warn", recent[1].Level)
}

func TestTUILogger_WritesIntoBuffer(t *testing.T) {
	buffer := NewLogBuffer(10, nil)
	log, err := CreateTUILoggerWithBuffer(false, buffer)
	require.NoError(t, err)

	log.Info("Aggregation run complete", zap.Int("loaded", 2), zap.String("run_id", "r1"))
	log.Debug("hidden")

	recent := buffer.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, "info", recent[0].Level)
	assert.Equal(t, "Aggregation run complete", recent[0].Message)
	assert.Equal(t, "r1", recent[0].Fields["run_id"])
	assert.EqualValues(t, 2, recent[0].Fields["loaded"])
	assert.False(t, recent[0].Timestamp.IsZero())
}

func TestLogBuffer_CloseSpillsEverything(t *testing.T) {
	var spill bytes.Buffer
	buffer := NewLogBuffer(4, &spill)
	_, err := buffer.Write([]byte("plain text line\n"))
	require.NoError(t, err)
	require.NoError(t, buffer.Add("error", "boom", map[string]interface{}{"mint": "MintA"}))

	require.NoError(t, buffer.Close())

	lines := strings.Split(strings.TrimSpace(spill.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "plain text line")
	assert.Contains(t, lines[1], `"mint":"MintA"`)
}

func TestCreateTUILoggerRequiresBuffer(t *testing.T) {
	_, err := CreateTUILoggerWithBuffer(true, nil)
	assert.Error(t, err)
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (l lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
