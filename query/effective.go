// Package query exposes go-command compatible read handlers for effective
// preferences, managed defaults, audit feeds, and guardian listings.
package query

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-prefs/access"
	"github.com/goliatone/go-prefs/pkg/types"
)

// ContextBuilder resolves the target user into the context used for managed
// default resolution.
type ContextBuilder interface {
	Build(ctx context.Context, userID string) (types.UserContext, error)
}

// DefaultsResolver computes the managed default for every schema entry that
// applies to the user context.
type DefaultsResolver interface {
	ResolveManagedDefaults(ctx context.Context, userCtx types.UserContext) (map[string]types.ResolvedPreference, error)
}

// Merger combines stored values with managed defaults into the effective view.
type Merger func(stored []types.StoredPreference, defaults map[string]types.ResolvedPreference, includeDefaults bool) ([]types.ResolvedPreference, error)

// EffectivePreferencesInput scopes effective preference resolution.
type EffectivePreferencesInput struct {
	UserID          string
	IncludeDefaults bool
	Actor           types.ActorRef
}

// EffectivePreferencesQueryConfig wires dependencies for the read side.
type EffectivePreferencesQueryConfig struct {
	Preferences types.PreferenceStore
	Context     ContextBuilder
	Defaults    DefaultsResolver
	Merge       Merger
	Guard       access.Guard
}

// EffectivePreferencesQuery resolves the user's effective preference set:
// stored values merged over managed defaults, user wins per key.
type EffectivePreferencesQuery struct {
	prefs    types.PreferenceStore
	context  ContextBuilder
	defaults DefaultsResolver
	merge    Merger
	guard    access.Guard
}

// NewEffectivePreferencesQuery constructs the query helper.
func NewEffectivePreferencesQuery(cfg EffectivePreferencesQueryConfig) *EffectivePreferencesQuery {
	return &EffectivePreferencesQuery{
		prefs:    cfg.Preferences,
		context:  cfg.Context,
		defaults: cfg.Defaults,
		merge:    cfg.Merge,
		guard:    safeGuard(cfg.Guard),
	}
}

var _ gocommand.Querier[EffectivePreferencesInput, []types.ResolvedPreference] = (*EffectivePreferencesQuery)(nil)

// Query returns the effective preferences for the target user. With
// IncludeDefaults false only stored values are returned.
func (q *EffectivePreferencesQuery) Query(ctx context.Context, input EffectivePreferencesInput) ([]types.ResolvedPreference, error) {
	if q.prefs == nil {
		return nil, types.ErrMissingPreferenceStore
	}
	if q.merge == nil {
		return nil, types.ErrServiceNotReady
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, types.ErrUserIDRequired
	}
	if err := q.guard.Enforce(ctx, input.Actor, access.ActionPreferencesRead, userID); err != nil {
		return nil, err
	}

	stored, err := q.prefs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !input.IncludeDefaults {
		return q.merge(stored, nil, false)
	}
	if q.context == nil {
		return nil, types.ErrMissingContextBuilder
	}
	if q.defaults == nil {
		return nil, types.ErrMissingDefaultsResolver
	}
	userCtx, err := q.context.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	defaults, err := q.defaults.ResolveManagedDefaults(ctx, userCtx)
	if err != nil {
		return nil, err
	}
	return q.merge(stored, defaults, true)
}
