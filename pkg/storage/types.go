package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
)

// Conversation is one completed exchange: the messages sent to the model plus
// the assistant reply.
type Conversation struct {
	ID        string       `json:"id" db:"id"`
	Model     string       `json:"model" db:"model"`
	Title     *string      `json:"title" db:"title"`
	Starred   bool         `json:"starred" db:"starred"`
	Messages  JSONMessages `json:"messages" db:"messages"`
	Metadata  JSONMap      `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time    `json:"timestamp" db:"created_at"`
}

// APILog records one call to the inference server.
type APILog struct {
	ID         int64     `json:"id" db:"id"`
	Endpoint   string    `json:"endpoint" db:"endpoint"`
	Method     string    `json:"method" db:"method"`
	Request    JSONMap   `json:"request" db:"request"`
	Response   *string   `json:"response,omitempty" db:"response"`
	Error      *string   `json:"error,omitempty" db:"error"`
	DurationMs *int64    `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time `json:"timestamp" db:"created_at"`
}

// Setting is a single key-value override.
type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// JSONMessages stores a message list as a JSON array column.
type JSONMessages []llm.Message

// Scan implements the sql.Scanner interface for JSONMessages
func (m *JSONMessages) Scan(value any) error {
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into JSONMessages: %w", value, err)
	}
	if len(data) == 0 {
		*m = JSONMessages{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Value implements the driver.Valuer interface for JSONMessages
func (m JSONMessages) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]llm.Message(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// JSONMap stores a free-form object as a JSON column.
type JSONMap map[string]any

// Scan implements the sql.Scanner interface for JSONMap
func (m *JSONMap) Scan(value any) error {
	data, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into JSONMap: %w", value, err)
	}
	if len(data) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Value implements the driver.Valuer interface for JSONMap
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func jsonBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported type")
	}
}
