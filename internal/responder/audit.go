package responder

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// AuditEvent is one line of the JSONL audit trail: what happened to one
// modmail message and why.
type AuditEvent struct {
	Timestamp      string   `json:"timestamp"`
	ConversationID string   `json:"conversation_id"`
	MessageID      string   `json:"message_id"`
	Username       string   `json:"username"`
	Outcome        string   `json:"outcome"`
	RuleName       string   `json:"rule_name,omitempty"`
	Priority       int      `json:"priority,omitempty"`
	Actions        []string `json:"actions,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// AuditLogger appends events to a JSONL file.
type AuditLogger struct {
	file *os.File
	mu   sync.Mutex
}

func NewAuditLogger(path string) (*AuditLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{file: file}, nil
}

func (l *AuditLogger) Log(event AuditEvent) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *AuditLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
