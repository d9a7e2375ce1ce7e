package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-prefs/access"
	"github.com/goliatone/go-prefs/pkg/types"
)

// PreferenceDeleteInput identifies the stored value to remove.
type PreferenceDeleteInput struct {
	UserID string
	Key    string
	Actor  types.ActorRef
}

// PreferenceDeleteCommand removes a stored preference. Removals skip policy
// enforcement: clearing a value always falls back to the managed default, so
// a restricted user can never be trapped on a stored value.
type PreferenceDeleteCommand struct {
	prefs  types.PreferenceStore
	audit  types.AuditStore
	guard  access.Guard
	hooks  types.Hooks
	clock  types.Clock
	logger types.Logger
}

// NewPreferenceDeleteCommand constructs the handler.
func NewPreferenceDeleteCommand(cfg PreferenceCommandConfig) *PreferenceDeleteCommand {
	return &PreferenceDeleteCommand{
		prefs:  cfg.Preferences,
		audit:  cfg.Audit,
		guard:  safeGuard(cfg.Guard),
		hooks:  safeHooks(cfg.Hooks),
		clock:  safeClock(cfg.Clock),
		logger: safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[PreferenceDeleteInput] = (*PreferenceDeleteCommand)(nil)

// Execute deletes the stored value and appends a DELETE audit record.
// Deleting an absent key is a no-op.
func (c *PreferenceDeleteCommand) Execute(ctx context.Context, input PreferenceDeleteInput) error {
	if c.prefs == nil {
		return types.ErrMissingPreferenceStore
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return ErrUserIDRequired
	}
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return ErrPreferenceKeyRequired
	}
	if input.Actor.ID == "" {
		return ErrActorRequired
	}

	if err := c.guard.Enforce(ctx, input.Actor, access.ActionPreferencesWrite, userID); err != nil {
		return err
	}

	existing, err := c.prefs.GetPreference(ctx, userID, key)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if err := c.prefs.DeletePreference(ctx, userID, key); err != nil {
		return err
	}

	ts := now(c.clock)
	appendAudit(ctx, c.audit, c.logger, types.PreferenceVersion{
		UserID:        userID,
		PreferenceKey: key,
		Action:        types.VersionActionDelete,
		OldValue:      existing.Value,
		Timestamp:     ts,
	})
	emitPreferenceHook(ctx, c.hooks, types.PreferenceEvent{
		UserID:     userID,
		Key:        key,
		Action:     "preference.delete",
		ActorID:    input.Actor.ID,
		OccurredAt: ts,
	})
	return nil
}
