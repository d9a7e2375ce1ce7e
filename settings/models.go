package settings

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the user_preferences row. At most one row exists per
// (user_id, preference_key).
type Record struct {
	bun.BaseModel `bun:"table:user_preferences"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	UserID        string    `bun:"user_id"`
	PreferenceKey string    `bun:"preference_key"`
	Value         string    `bun:"value"`
	UpdatedAt     time.Time `bun:"updated_at"`
}
