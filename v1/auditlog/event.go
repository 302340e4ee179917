package auditlog

import (
	"encoding/json"
	"fmt"
	"time"
)

// LogType is the severity recorded with an event.
type LogType string

const (
	Info    LogType = "info"
	Success LogType = "success"
	Error   LogType = "error"
	Warning LogType = "warning"
	Debug   LogType = "debug"
)

// Valid reports whether t is one of the known log types.
func (t LogType) Valid() bool {
	switch t {
	case Info, Success, Error, Warning, Debug:
		return true
	}
	return false
}

// Event is one structured log line. UserID is optional.
type Event struct {
	UserID         *int64
	ScreenName     string
	CallerFunction string
	LogType        LogType
	Message        string
	Metadata       map[string]interface{}
}

// Entry is the persisted row.
type Entry struct {
	ID             int64     `gorm:"column:id;primaryKey"`
	UserID         *int64    `gorm:"column:user_id"`
	ScreenName     string    `gorm:"column:screen_name"`
	CallerFunction string    `gorm:"column:caller_function"`
	LogType        string    `gorm:"column:log_type"`
	Message        string    `gorm:"column:message"`
	Metadata       *string   `gorm:"column:metadata"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// encodeMetadata renders metadata as JSON text; empty metadata is stored as NULL.
func encodeMetadata(metadata map[string]interface{}) (*string, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode log metadata: %w", err)
	}
	s := string(raw)
	return &s, nil
}

// UserID is a convenience for building events with a user reference.
func UserID(id int64) *int64 {
	return &id
}
