package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// LogEntry represents a single log entry in the buffer
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogBuffer is a thread-safe ring of recent log entries. It implements
// io.Writer so a zap JSON core can write into it directly; entries pushed
// out of the ring are copied to the optional spill writer.
type LogBuffer struct {
	mu           sync.Mutex
	ringBuffer   []LogEntry
	maxSize      int
	currentIndex int
	wrapped      bool
	spill        io.Writer

	// Stats
	totalEntries   uint64
	spilledEntries uint64
}

// NewLogBuffer creates a ring of maxSize entries. spill may be nil.
func NewLogBuffer(maxSize int, spill io.Writer) *LogBuffer {
	if maxSize <= 0 {
		maxSize = 200
	}
	return &LogBuffer{
		ringBuffer: make([]LogEntry, maxSize),
		maxSize:    maxSize,
		spill:      spill,
	}
}

// Write parses one or more zap JSON lines and stores them as entries.
// Lines that are not JSON are stored verbatim as the message.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(p, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if err := lb.add(parseLine(line)); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Add adds a new log entry to the buffer
func (lb *LogBuffer) Add(level, message string, fields map[string]interface{}) error {
	return lb.add(LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Fields:    fields,
	})
}

func (lb *LogBuffer) add(entry LogEntry) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	// Slot is about to be overwritten: spill the oldest entry first
	if lb.wrapped {
		if err := lb.spillEntry(lb.ringBuffer[lb.currentIndex]); err != nil {
			return err
		}
	}

	lb.ringBuffer[lb.currentIndex] = entry
	lb.currentIndex = (lb.currentIndex + 1) % lb.maxSize
	if lb.currentIndex == 0 {
		lb.wrapped = true
	}
	lb.totalEntries++

	return nil
}

func (lb *LogBuffer) spillEntry(entry LogEntry) error {
	if lb.spill == nil {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	data = append(data, '\n')
	if _, err := lb.spill.Write(data); err != nil {
		return fmt.Errorf("failed to write to spill file: %w", err)
	}
	lb.spilledEntries++
	return nil
}

// Recent returns up to limit of the newest entries, oldest first.
// A limit of zero or less returns everything buffered.
func (lb *LogBuffer) Recent(limit int) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count := lb.currentIndex
	start := 0
	if lb.wrapped {
		count = lb.maxSize
		start = lb.currentIndex
	}
	if limit > 0 && limit < count {
		start += count - limit
		count = limit
	}

	logs := make([]LogEntry, 0, count)
	for i := 0; i < count; i++ {
		logs = append(logs, lb.ringBuffer[(start+i)%lb.maxSize])
	}
	return logs
}

// Stats returns buffer statistics
func (lb *LogBuffer) Stats() (total, spilled uint64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.totalEntries, lb.spilledEntries
}

// Sync makes LogBuffer a zapcore.WriteSyncer.
func (lb *LogBuffer) Sync() error {
	return nil
}

// Close spills every buffered entry and closes the spill writer when it
// is closable.
func (lb *LogBuffer) Close() error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.spill == nil {
		return nil
	}

	count, start := lb.currentIndex, 0
	if lb.wrapped {
		count, start = lb.maxSize, lb.currentIndex
	}
	for i := 0; i < count; i++ {
		if err := lb.spillEntry(lb.ringBuffer[(start+i)%lb.maxSize]); err != nil {
			return err
		}
	}

	if c, ok := lb.spill.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// parseLine decodes a zap JSON line written with the buffer encoder config.
func parseLine(line []byte) LogEntry {
	raw := make(map[string]interface{})
	if err := json.Unmarshal(line, &raw); err != nil {
		return LogEntry{Timestamp: time.Now(), Level: "info", Message: string(line)}
	}

	entry := LogEntry{Timestamp: time.Now()}
	if v, ok := raw["level"].(string); ok {
		entry.Level = v
	}
	if v, ok := raw["msg"].(string); ok {
		entry.Message = v
	}
	if v, ok := raw["time"].(string); ok {
		if ts, err := time.Parse("2006-01-02T15:04:05.000Z0700", v); err == nil {
			entry.Timestamp = ts
		}
	}
	delete(raw, "level")
	delete(raw, "msg")
	delete(raw, "time")
	if len(raw) > 0 {
		entry.Fields = raw
	}
	return entry
}
