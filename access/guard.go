package access

import (
	"context"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-prefs/pkg/types"
)

// Action identifies the operation an actor is attempting.
type Action string

const (
	ActionPreferencesRead  Action = "preferences.read"
	ActionPreferencesWrite Action = "preferences.write"
	ActionVersionsRead     Action = "versions.read"
	ActionChildrenList     Action = "children.list"
)

const (
	textCodeActorRequired   = "ACTOR_REQUIRED"
	textCodeChildNotLinked  = "CHILD_NOT_LINKED"
	textCodeGuardianPrivate = "GUARDIAN_ROLE_REQUIRED"
)

// Guard decides whether an actor may perform an action against a target
// user's preferences. It is intentionally small so callers can swap custom
// guards in tests if needed.
type Guard interface {
	Enforce(ctx context.Context, actor types.ActorRef, action Action, targetUserID string) error
}

type guard struct {
	links types.ChildLinkStore
}

// NewGuard builds a Guard from the supplied child link store. The guard
// enforces role and target checks even when the store is nil; without a store
// the linked-adult path simply never authorizes.
func NewGuard(links types.ChildLinkStore) Guard {
	return guard{links: links}
}

// Ensure returns a non-nil guard so command/query constructors can accept nil
// guards when tests instantiate them directly.
func Ensure(g Guard) Guard {
	if g == nil {
		return NopGuard()
	}
	return g
}

type nopGuard struct{}

func (nopGuard) Enforce(context.Context, types.ActorRef, Action, string) error { return nil }

// NopGuard returns a guard that never blocks.
func NopGuard() Guard {
	return nopGuard{}
}

// Enforce authorizes the action. Self access is always permitted, admins are
// unrestricted, and adults may act on users linked to them as children.
func (g guard) Enforce(ctx context.Context, actor types.ActorRef, action Action, targetUserID string) error {
	if actor.ID == "" {
		return goerrors.New("go-prefs: actor reference required", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(textCodeActorRequired)
	}

	if action == ActionChildrenList {
		if actor.IsAdmin() {
			return nil
		}
		if actor.IsAdult() && (targetUserID == "" || targetUserID == actor.ID) {
			return nil
		}
		return goerrors.New("go-prefs: only adult or admin actors can list children", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden).
			WithTextCode(textCodeGuardianPrivate)
	}

	if targetUserID == "" || targetUserID == actor.ID {
		return nil
	}
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsAdult() {
		if g.links == nil {
			return goerrors.New("go-prefs: child is not linked to this adult", goerrors.CategoryAuthz).
				WithCode(goerrors.CodeForbidden).
				WithTextCode(textCodeChildNotLinked)
		}
		link, err := g.links.GetLink(ctx, actor.ID, targetUserID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "go-prefs: child link lookup failed").
				WithCode(goerrors.CodeInternal)
		}
		if link != nil {
			return nil
		}
		return goerrors.New("go-prefs: child is not linked to this adult", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden).
			WithTextCode(textCodeChildNotLinked)
	}

	return goerrors.New("go-prefs: only adult or admin actors can manage other users", goerrors.CategoryAuthz).
		WithCode(goerrors.CodeForbidden).
		WithTextCode(textCodeGuardianPrivate)
}
