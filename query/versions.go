package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-auth"
	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-prefs/access"
	"github.com/goliatone/go-prefs/pkg/types"
	"github.com/goliatone/go-prefs/versions"
)

// PreferenceVersionsInput scopes the audit feed. An empty Filter.UserID
// defaults to the actor's own feed.
type PreferenceVersionsInput struct {
	Filter types.VersionFilter
	Actor  types.ActorRef
}

// PreferenceVersionsQueryConfig wires dependencies for the audit feed.
type PreferenceVersionsQueryConfig struct {
	Audit  types.AuditStore
	Guard  access.Guard
	Policy versions.VersionAccessPolicy
}

// PreferenceVersionsQuery serves the paginated audit feed with access
// scoping and value sanitization.
type PreferenceVersionsQuery struct {
	audit  types.AuditStore
	guard  access.Guard
	policy versions.VersionAccessPolicy
}

// NewPreferenceVersionsQuery constructs the feed query helper.
func NewPreferenceVersionsQuery(cfg PreferenceVersionsQueryConfig) *PreferenceVersionsQuery {
	policy := cfg.Policy
	if policy == nil {
		policy = versions.NewDefaultAccessPolicy()
	}
	return &PreferenceVersionsQuery{
		audit:  cfg.Audit,
		guard:  safeGuard(cfg.Guard),
		policy: policy,
	}
}

var _ gocommand.Querier[PreferenceVersionsInput, types.VersionPage] = (*PreferenceVersionsQuery)(nil)

// Query returns a page of the audit feed, newest first.
func (q *PreferenceVersionsQuery) Query(ctx context.Context, input PreferenceVersionsInput) (types.VersionPage, error) {
	if q.audit == nil {
		return types.VersionPage{}, types.ErrMissingAuditStore
	}
	if input.Actor.ID == "" {
		return types.VersionPage{}, types.ErrActorRequired
	}

	filter := input.Filter
	actorCtx := &auth.ActorContext{Role: input.Actor.RoleName(), Subject: input.Actor.ID}
	target := strings.TrimSpace(filter.UserID)
	if target == "" || target == input.Actor.ID {
		// Self feeds are scoped by the access policy; cross-user targets are
		// authorized by the guard below (admin or linked guardian).
		scoped, err := q.policy.Apply(actorCtx, input.Actor.RoleName(), filter)
		if err != nil {
			return types.VersionPage{}, err
		}
		filter = scoped
	}
	if strings.TrimSpace(filter.UserID) == "" {
		filter.UserID = input.Actor.ID
	}
	if err := q.guard.Enforce(ctx, input.Actor, access.ActionVersionsRead, filter.UserID); err != nil {
		return types.VersionPage{}, err
	}

	page, err := q.audit.ListVersions(ctx, filter)
	if err != nil {
		return types.VersionPage{}, err
	}
	page.Items = q.policy.Sanitize(actorCtx, input.Actor.RoleName(), page.Items)
	return page, nil
}
