package thresholds

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the age_thresholds row. AgeThreshold is nullable so a row can
// exist without a usable cutoff; such rows behave like misses and trigger the
// DEFAULT fallback.
type Record struct {
	bun.BaseModel `bun:"table:age_thresholds"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	RegionCode   string    `bun:"region_code"`
	AgeThreshold *int      `bun:"age_threshold"`
}
