package versions

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VersionCursor defines the cursor shape for audit feeds.
type VersionCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uuid.UUID `json:"id"`
}

// ApplyCursorPagination applies cursor pagination using created_at/id ordering.
// Results are ordered by created_at DESC, id DESC, and filtered to items older
// than the supplied cursor.
func ApplyCursorPagination(q *bun.SelectQuery, cursor *VersionCursor, limit int) *bun.SelectQuery {
	if q == nil {
		return nil
	}
	q = q.OrderExpr("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if cursor == nil || cursor.CreatedAt.IsZero() {
		return q
	}
	if cursor.ID == uuid.Nil {
		return q.Where("created_at < ?", cursor.CreatedAt)
	}
	return q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
}

// EncodeCursor serializes the cursor into an opaque URL-safe page token.
func EncodeCursor(cursor VersionCursor) (string, error) {
	raw, err := json.Marshal(cursor)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor parses a page token produced by EncodeCursor. Empty tokens
// decode to a nil cursor.
func DecodeCursor(token string) (*VersionCursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	cursor := &VersionCursor{}
	if err := json.Unmarshal(raw, cursor); err != nil {
		return nil, err
	}
	return cursor, nil
}
