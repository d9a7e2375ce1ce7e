package command

import (
	"errors"

	"github.com/goliatone/go-prefs/pkg/types"
)

var (
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = types.ErrActorRequired
	// ErrUserIDRequired occurs when preference commands omit the target user.
	ErrUserIDRequired = types.ErrUserIDRequired
	// ErrPreferencesRequired occurs when a write carries no key/value pairs.
	ErrPreferencesRequired = errors.New("go-prefs: preferences payload required")
	// ErrPreferenceKeyRequired indicates the preference key was missing.
	ErrPreferenceKeyRequired = errors.New("go-prefs: preference key required")
	// ErrVersionKeyRequired indicates a revert omitted the version key.
	ErrVersionKeyRequired = errors.New("go-prefs: version key required")
	// ErrRevertDisabled indicates the revert flow is disabled via feature gate.
	ErrRevertDisabled = errors.New("go-prefs: revert disabled")
	// ErrWritesDisabled indicates preference writes are disabled via feature gate.
	ErrWritesDisabled = errors.New("go-prefs: preference writes disabled")
)
