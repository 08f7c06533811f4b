package history

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/meshstream/core"
)

// ErrThreadNotFound is returned for unknown thread IDs.
var ErrThreadNotFound = errors.New("thread not found")

// Thread is the recorded transcript of one conversation thread.
type Thread struct {
	ID        string         `json:"id"`
	Worker    string         `json:"worker"`
	Messages  []core.Message `json:"messages"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Summary describes a thread without its messages.
type Summary struct {
	ID        string    `json:"id"`
	Worker    string    `json:"worker"`
	Messages  int       `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists transcripts. Implementations are safe for concurrent use.
type Store interface {
	Append(ctx context.Context, threadID, worker string, msgs ...core.Message) error
	Thread(ctx context.Context, threadID string) (*Thread, error)
	List(ctx context.Context) ([]Summary, error)
	Close() error
}
