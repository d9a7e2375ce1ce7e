package resolver

import (
	"context"
	"time"

	"github.com/goliatone/go-prefs/pkg/types"
)

const birthDateLayout = "2006-01-02"

// ContextBuilderConfig wires dependencies for the user context builder.
type ContextBuilderConfig struct {
	Users      types.UserStore
	Thresholds types.AgeThresholdStore
	Clock      types.Clock
}

// ContextBuilder derives the per-request resolution context (age, country,
// child classification) for a user identifier.
type ContextBuilder struct {
	users      types.UserStore
	thresholds types.AgeThresholdStore
	clock      types.Clock
}

// NewContextBuilder constructs a context builder.
func NewContextBuilder(cfg ContextBuilderConfig) (*ContextBuilder, error) {
	if cfg.Users == nil {
		return nil, types.ErrMissingUserStore
	}
	if cfg.Thresholds == nil {
		return nil, types.ErrMissingThresholdStore
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &ContextBuilder{
		users:      cfg.Users,
		thresholds: cfg.Thresholds,
		clock:      clock,
	}, nil
}

// Build resolves the user context. Unknown users fall through every branch
// and resolve as unrestricted adults; only store failures are returned as
// errors. Malformed birth dates degrade to a nil age rather than failing the
// resolution.
func (b *ContextBuilder) Build(ctx context.Context, userID string) (types.UserContext, error) {
	var user types.User
	if userID != "" {
		found, err := b.users.GetUser(ctx, userID)
		if err != nil {
			return types.UserContext{}, err
		}
		if found != nil {
			user = *found
		} else {
			user.ID = userID
		}
	}

	age := calculateAge(parseBirthDate(user.BirthDate), b.clock.Now())
	threshold, err := b.fetchAgeThreshold(ctx, user.Country)
	if err != nil {
		return types.UserContext{}, err
	}

	isChild := types.ParseRole(string(user.Role)) == types.RoleChild
	if !isChild && age != nil && threshold != nil && *age < *threshold {
		// Age only promotes to child; an explicit adult role is never demoted.
		isChild = true
	}

	return types.UserContext{
		User:    user,
		Age:     age,
		Country: user.Country,
		IsChild: isChild,
	}, nil
}

// fetchAgeThreshold looks up the cutoff for the country, falling back to the
// DEFAULT row whenever the country lookup misses.
func (b *ContextBuilder) fetchAgeThreshold(ctx context.Context, country string) (*int, error) {
	region := country
	if region == "" {
		region = types.DefaultRegionCode
	}
	row, err := b.thresholds.GetThreshold(ctx, region)
	if err != nil {
		return nil, err
	}
	if row == nil && region != types.DefaultRegionCode {
		row, err = b.thresholds.GetThreshold(ctx, types.DefaultRegionCode)
		if err != nil {
			return nil, err
		}
	}
	if row == nil {
		return nil, nil
	}
	threshold := row.AgeThreshold
	return &threshold, nil
}

func parseBirthDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(birthDateLayout, raw)
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}

// calculateAge returns whole years as of now, using month/day comparison so a
// birthday today counts as having occurred. Clamped to a minimum of zero.
func calculateAge(birthDate *time.Time, now time.Time) *int {
	if birthDate == nil {
		return nil
	}
	today := now.UTC()
	years := today.Year() - birthDate.Year()
	if today.Month() < birthDate.Month() ||
		(today.Month() == birthDate.Month() && today.Day() < birthDate.Day()) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return &years
}
