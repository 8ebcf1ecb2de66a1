// Package oplog is the operator-visible log: converter output, save results
// and errors, each stamped with the time it arrived.
package oplog

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is one operator log record
type Entry struct {
	Time time.Time
	Text string
}

// String renders the entry the way the log pane shows it.
func (e Entry) String() string {
	return e.Time.Format("[15:04:05]") + "\n" + e.Text
}

// Log collects entries in a bounded buffer. Append may be called from any
// goroutine; converter output arrives from process reader goroutines.
type Log struct {
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	entries  []Entry
	capacity int
	onChange func()
}

// New creates a log keeping at most capacity entries. Every entry is mirrored
// to logger at info level.
func New(capacity int, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if capacity < 1 {
		capacity = 1
	}
	return &Log{
		logger:   logger,
		now:      time.Now,
		capacity: capacity,
	}
}

// OnChange registers fn to be called after every Append or Clear. The TUI uses
// it to schedule a redraw.
func (l *Log) OnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Append records text. Empty text is dropped.
func (l *Log) Append(text string) {
	text = strings.TrimRight(text, "\r\n")
	if strings.TrimSpace(text) == "" {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, Entry{Time: l.now(), Text: text})
	if over := len(l.entries) - l.capacity; over > 0 {
		l.entries = append(l.entries[:0], l.entries[over:]...)
	}
	l.mu.Unlock()
	l.logger.Info("oplog", "text", text)
	l.notify()
}

// Entries returns a copy of the retained entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear drops all entries.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
	l.notify()
}

// String renders all entries separated by blank lines.
func (l *Log) String() string {
	entries := l.Entries()
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.String()
	}
	return strings.Join(parts, "\n\n")
}

func (l *Log) notify() {
	l.mu.Lock()
	fn := l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Writer returns an io.Writer that appends each chunk it receives as one
// entry, so process output shows up as it is produced.
func (l *Log) Writer() io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		l.Append(string(p))
		return len(p), nil
	})
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
