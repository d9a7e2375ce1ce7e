package query

import (
	"context"
	"errors"
	"strings"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"

	"github.com/goliatone/go-prefs/access"
	"github.com/goliatone/go-prefs/pkg/types"
)

const featureGuardianChildren = "guardian.children_list"

// ErrChildrenListDisabled indicates guardian listings are disabled via
// feature gate.
var ErrChildrenListDisabled = errors.New("go-prefs: children listing disabled")

// ChildLister resolves the children managed by an adult account.
type ChildLister interface {
	ListChildren(ctx context.Context, adultID string) ([]types.ChildSummary, error)
}

// LinkedChildrenInput scopes the guardian listing. An empty AdultID defaults
// to the actor's own account.
type LinkedChildrenInput struct {
	AdultID string
	Actor   types.ActorRef
}

// LinkedChildrenQueryConfig wires dependencies for guardian listings.
type LinkedChildrenQueryConfig struct {
	Children ChildLister
	Guard    access.Guard
	Gate     featuregate.FeatureGate
}

// LinkedChildrenQuery lists the child accounts an adult manages.
type LinkedChildrenQuery struct {
	children ChildLister
	guard    access.Guard
	gate     featuregate.FeatureGate
}

// NewLinkedChildrenQuery constructs the listing helper.
func NewLinkedChildrenQuery(cfg LinkedChildrenQueryConfig) *LinkedChildrenQuery {
	return &LinkedChildrenQuery{
		children: cfg.Children,
		guard:    safeGuard(cfg.Guard),
		gate:     cfg.Gate,
	}
}

var _ gocommand.Querier[LinkedChildrenInput, []types.ChildSummary] = (*LinkedChildrenQuery)(nil)

// Query returns child summaries for the adult account.
func (q *LinkedChildrenQuery) Query(ctx context.Context, input LinkedChildrenInput) ([]types.ChildSummary, error) {
	if q.children == nil {
		return nil, types.ErrMissingChildLinkStore
	}
	if input.Actor.ID == "" {
		return nil, types.ErrActorRequired
	}
	adultID := strings.TrimSpace(input.AdultID)
	if adultID == "" {
		adultID = input.Actor.ID
	}
	if err := q.guard.Enforce(ctx, input.Actor, access.ActionChildrenList, adultID); err != nil {
		return nil, err
	}
	if q.gate != nil {
		enabled, err := q.gate.Enabled(ctx, featureGuardianChildren, featuregate.WithScopeSet(featuregate.ScopeSet{
			System: true,
			UserID: adultID,
		}))
		if err != nil {
			return nil, err
		}
		if !enabled {
			return nil, ErrChildrenListDisabled
		}
	}
	return q.children.ListChildren(ctx, adultID)
}
