package managed

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the managed_preferences row. BaseDefault holds the
// JSON-serialized default ("" means no default) so administrators can curate
// string, numeric, or boolean defaults without schema changes. MinAge/MaxAge
// are nullable; NULL means the bound is not enforced.
type Record struct {
	bun.BaseModel `bun:"table:managed_preferences"`

	ID               uuid.UUID      `bun:"id,pk,type:uuid"`
	PreferenceKey    string         `bun:"preference_key"`
	Scope            string         `bun:"scope"`
	BaseDefault      string         `bun:"base_default"`
	ChildOverride    string         `bun:"child_override"`
	MinAge           *int           `bun:"min_age"`
	MaxAge           *int           `bun:"max_age"`
	CountryOverrides map[string]any `bun:"country_overrides,type:jsonb"`
}
