package event

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventLogger appends every bus event to a daily NDJSON file, one line
// per event. The files are the audit trail for task runs.
type EventLogger struct {
	logDir string

	mu   sync.Mutex
	day  string
	file *os.File
}

func NewEventLogger(logDir string) (*EventLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &EventLogger{logDir: logDir}, nil
}

// loggedEvent is the on-disk line format: the event plus the wall time
// it was written, which can lag the event timestamp under load.
type loggedEvent struct {
	*EventMessage
	LoggedAt string `json:"logged_at"`
}

// LogEvent appends one event to the file for its timestamp's day.
func (el *EventLogger) LogEvent(_ context.Context, eventMsg *EventMessage) error {
	data, err := json.Marshal(loggedEvent{
		EventMessage: eventMsg,
		LoggedAt:     time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	f, err := el.fileFor(eventMsg.Timestamp)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// fileFor returns the open handle for the day of the timestamp,
// rotating when the day changes. Caller holds el.mu.
func (el *EventLogger) fileFor(ts time.Time) (*os.File, error) {
	day := ts.Format("2006-01-02")
	if el.file != nil && el.day == day {
		return el.file, nil
	}
	if el.file != nil {
		_ = el.file.Close()
		el.file = nil
	}
	f, err := os.OpenFile(eventLogPath(el.logDir, ts), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	el.day = day
	el.file = f
	return f, nil
}

// Close releases the current log file handle.
func (el *EventLogger) Close() error {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.file == nil {
		return nil
	}
	err := el.file.Close()
	el.file = nil
	return err
}

func eventLogPath(logDir string, ts time.Time) string {
	return filepath.Join(logDir, fmt.Sprintf("events_%s.ndjson", ts.Format("2006-01-02")))
}

// RegisterEventLogger subscribes the logger to every event type.
func RegisterEventLogger(eventBus *EventBus, logger *EventLogger) {
	for _, eventType := range AllEventTypes() {
		if err := eventBus.SubscribeAsync(eventType, fmt.Sprintf("logger-%s", eventType), func(eventMsg *EventMessage) error {
			if err := logger.LogEvent(context.Background(), eventMsg); err != nil {
				slog.Warn("failed to log event", "event_id", eventMsg.ID, "error", err)
			}
			return nil
		}); err != nil {
			slog.Warn("failed to subscribe event logger", "event_type", eventType, "error", err)
		}
	}
}

// EventLogReader reads events back out of the daily log files.
type EventLogReader struct {
	logDir string
}

func NewEventLogReader(logDir string) *EventLogReader {
	return &EventLogReader{logDir: logDir}
}

// ReadEvents returns every event logged on the given date, in write
// order. A missing file means no events that day.
func (elr *EventLogReader) ReadEvents(date time.Time) ([]*EventMessage, error) {
	data, err := os.ReadFile(eventLogPath(elr.logDir, date))
	if err != nil {
		if os.IsNotExist(err) {
			return []*EventMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	var events []*EventMessage
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry loggedEvent
		if err := json.Unmarshal(line, &entry); err != nil {
			slog.Warn("skipping corrupt event log line", "error", err)
			continue
		}
		events = append(events, entry.EventMessage)
	}
	return events, scanner.Err()
}

// ReadEventsByType filters a day's events to one event type.
func (elr *EventLogReader) ReadEventsByType(date time.Time, eventType EventType) ([]*EventMessage, error) {
	all, err := elr.ReadEvents(date)
	if err != nil {
		return nil, err
	}
	var filtered []*EventMessage
	for _, ev := range all {
		if ev.Type == eventType {
			filtered = append(filtered, ev)
		}
	}
	return filtered, nil
}

// ReadEventsByTask filters a day's events to one task, using the
// task_id field every event payload carries.
func (elr *EventLogReader) ReadEventsByTask(date time.Time, taskID string) ([]*EventMessage, error) {
	all, err := elr.ReadEvents(date)
	if err != nil {
		return nil, err
	}
	var filtered []*EventMessage
	for _, ev := range all {
		var payload struct {
			TaskID string `json:"task_id"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			continue
		}
		if payload.TaskID == taskID {
			filtered = append(filtered, ev)
		}
	}
	return filtered, nil
}
