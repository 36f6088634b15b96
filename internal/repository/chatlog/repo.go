package chatlog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/herdask/internal/domain/chat"
)

const (
	fieldID        = "id"
	fieldCallerID  = "caller_id"
	fieldMessage   = "message"
	fieldResponse  = "response"
	fieldCreatedAt = "created_at"
)

// store is the consumer interface for chat history (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Repo stores chat messages as hashes under <prefix>chat:<caller_id>:<message_id>.
type Repo struct {
	store     store
	keyPrefix string
	now       func() time.Time
}

// New creates a chat history repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix + "chat:", now: time.Now}
}

// Append records an answered question and returns the stored message.
func (r *Repo) Append(ctx context.Context, callerID, message, response string) (chat.Message, error) {
	msg := chat.Message{
		ID:        uuid.NewString(),
		CallerID:  callerID,
		Message:   message,
		Response:  response,
		CreatedAt: r.now().UTC(),
	}

	fields := map[string]string{
		fieldID:        msg.ID,
		fieldCallerID:  msg.CallerID,
		fieldMessage:   msg.Message,
		fieldResponse:  msg.Response,
		fieldCreatedAt: msg.CreatedAt.Format(time.RFC3339Nano),
	}
	if err := r.store.HSet(ctx, r.keyPrefix+callerID+":"+msg.ID, fields); err != nil {
		return chat.Message{}, fmt.Errorf("append chat message: %w", err)
	}
	return msg, nil
}

// List returns the caller's most recent messages, newest first. limit <= 0 returns all.
func (r *Repo) List(ctx context.Context, callerID string, limit int) ([]chat.Message, error) {
	keys, err := r.store.Scan(ctx, r.keyPrefix+escapeGlob(callerID)+":*")
	if err != nil {
		return nil, fmt.Errorf("list chat keys: %w", err)
	}
	if len(keys) == 0 {
		return []chat.Message{}, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load chat messages: %w", err)
	}

	// The pattern also matches callers whose ID extends callerID with ":".
	msgs := make([]chat.Message, 0, len(hashes))
	for _, h := range hashes {
		if len(h) == 0 || h[fieldCallerID] != callerID {
			continue
		}
		msgs = append(msgs, parseHash(h))
	}

	slices.SortFunc(msgs, func(a, b chat.Message) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func parseHash(h map[string]string) chat.Message {
	created, _ := time.Parse(time.RFC3339Nano, h[fieldCreatedAt])
	return chat.Message{
		ID:        h[fieldID],
		CallerID:  h[fieldCallerID],
		Message:   h[fieldMessage],
		Response:  h[fieldResponse],
		CreatedAt: created,
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
