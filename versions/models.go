package versions

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record is the Bun model backing the append-only preference audit trail.
// OldValue/NewValue are nullable so "no prior value" and "removal" round-trip
// as absent instead of empty strings.
type Record struct {
	bun.BaseModel `bun:"table:preference_versions,alias:pv"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	UserID        string    `bun:"user_id,notnull"`
	VersionKey    string    `bun:"version_key,notnull"`
	PreferenceKey string    `bun:"preference_key,notnull"`
	Action        string    `bun:"action,notnull"`
	OldValue      *string   `bun:"old_value"`
	NewValue      *string   `bun:"new_value"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}
