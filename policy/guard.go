// Package policy implements the write-permission predicate consulted before
// every preference mutation. It never blocks removals and only restricts
// child accounts.
package policy

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-prefs/pkg/types"
)

const (
	textCodePreferenceLocked = "PREFERENCE_LOCKED"
	textCodeBelowMinAge      = "PREFERENCE_BELOW_MIN_AGE"
	textCodeAboveMaxAge      = "PREFERENCE_ABOVE_MAX_AGE"
)

// EnsureValueAllowed validates whether writing desired to the preference
// described by schema is permitted for the supplied user context. Clearing a
// preference (nil, empty string, empty collection) is always permitted, and
// non-child users bypass every remaining check.
func EnsureValueAllowed(schema *types.ManagedSchema, userCtx types.UserContext, desired any) error {
	if schema == nil {
		return nil
	}
	if IsRemoval(desired) {
		return nil
	}
	if !userCtx.IsChild {
		return nil
	}

	if schema.ChildLocked() {
		return goerrors.New("go-prefs: preference is locked for children", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden).
			WithTextCode(textCodePreferenceLocked)
	}

	if schema.MinAge != nil && (userCtx.Age == nil || *userCtx.Age < *schema.MinAge) {
		return goerrors.New("go-prefs: preference cannot be set below the minimum age", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden).
			WithTextCode(textCodeBelowMinAge)
	}

	if schema.MaxAge != nil && userCtx.Age != nil && *userCtx.Age > *schema.MaxAge {
		return goerrors.New("go-prefs: preference cannot be set above the maximum age", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden).
			WithTextCode(textCodeAboveMaxAge)
	}

	return nil
}

// IsRemoval reports whether the desired value represents clearing the
// preference rather than setting it.
func IsRemoval(desired any) bool {
	switch v := desired.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
