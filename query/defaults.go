package query

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-prefs/access"
	"github.com/goliatone/go-prefs/pkg/types"
)

// ManagedDefaultsInput scopes the defaults-only view.
type ManagedDefaultsInput struct {
	UserID string
	Actor  types.ActorRef
}

// ManagedDefaultsQueryConfig wires dependencies for the defaults view.
type ManagedDefaultsQueryConfig struct {
	Context  ContextBuilder
	Defaults DefaultsResolver
	Guard    access.Guard
}

// ManagedDefaultsQuery returns what the user would see with every stored
// value cleared. Useful for "reset to defaults" previews.
type ManagedDefaultsQuery struct {
	context  ContextBuilder
	defaults DefaultsResolver
	guard    access.Guard
}

// NewManagedDefaultsQuery constructs the query helper.
func NewManagedDefaultsQuery(cfg ManagedDefaultsQueryConfig) *ManagedDefaultsQuery {
	return &ManagedDefaultsQuery{
		context:  cfg.Context,
		defaults: cfg.Defaults,
		guard:    safeGuard(cfg.Guard),
	}
}

var _ gocommand.Querier[ManagedDefaultsInput, map[string]types.ResolvedPreference] = (*ManagedDefaultsQuery)(nil)

// Query resolves the managed defaults that apply to the target user.
func (q *ManagedDefaultsQuery) Query(ctx context.Context, input ManagedDefaultsInput) (map[string]types.ResolvedPreference, error) {
	if q.context == nil {
		return nil, types.ErrMissingContextBuilder
	}
	if q.defaults == nil {
		return nil, types.ErrMissingDefaultsResolver
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, types.ErrUserIDRequired
	}
	if err := q.guard.Enforce(ctx, input.Actor, access.ActionPreferencesRead, userID); err != nil {
		return nil, err
	}
	userCtx, err := q.context.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	return q.defaults.ResolveManagedDefaults(ctx, userCtx)
}
