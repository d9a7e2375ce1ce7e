package command

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	featuregate "github.com/goliatone/go-featuregate/gate"

	"github.com/goliatone/go-prefs/access"
	"github.com/goliatone/go-prefs/pkg/types"
	"github.com/goliatone/go-prefs/policy"
	"github.com/goliatone/go-prefs/resolver"
)

// ContextBuilder resolves the target user into the context used for policy
// decisions.
type ContextBuilder interface {
	Build(ctx context.Context, userID string) (types.UserContext, error)
}

var _ ContextBuilder = (*resolver.ContextBuilder)(nil)

// PreferenceCommandConfig wires dependencies for preference commands.
type PreferenceCommandConfig struct {
	Preferences types.PreferenceStore
	Schemas     types.SchemaStore
	Audit       types.AuditStore
	Context     ContextBuilder
	Guard       access.Guard
	Gate        featuregate.FeatureGate
	Hooks       types.Hooks
	Clock       types.Clock
	Logger      types.Logger
}

// PreferenceSetInput captures a preference write payload. Preferences may
// carry multiple keys; a nil value removes the key.
type PreferenceSetInput struct {
	UserID      string
	Preferences map[string]any
	Actor       types.ActorRef
	Result      *[]types.StoredPreference
}

// PreferenceSetCommand validates writes against the managed schema policy and
// persists them with an audit record per key.
type PreferenceSetCommand struct {
	prefs   types.PreferenceStore
	schemas types.SchemaStore
	audit   types.AuditStore
	context ContextBuilder
	guard   access.Guard
	gate    featuregate.FeatureGate
	hooks   types.Hooks
	clock   types.Clock
	logger  types.Logger
}

// NewPreferenceSetCommand constructs the handler.
func NewPreferenceSetCommand(cfg PreferenceCommandConfig) *PreferenceSetCommand {
	return &PreferenceSetCommand{
		prefs:   cfg.Preferences,
		schemas: cfg.Schemas,
		audit:   cfg.Audit,
		context: cfg.Context,
		guard:   safeGuard(cfg.Guard),
		gate:    cfg.Gate,
		hooks:   safeHooks(cfg.Hooks),
		clock:   safeClock(cfg.Clock),
		logger:  safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[PreferenceSetInput] = (*PreferenceSetCommand)(nil)

// Execute validates and persists the preference payload. Policy checks run
// for every key before any write so a denied key fails the whole batch.
func (c *PreferenceSetCommand) Execute(ctx context.Context, input PreferenceSetInput) error {
	if c.prefs == nil {
		return types.ErrMissingPreferenceStore
	}
	if c.schemas == nil {
		return types.ErrMissingSchemaStore
	}
	if c.context == nil {
		return types.ErrMissingContextBuilder
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return ErrUserIDRequired
	}
	if len(input.Preferences) == 0 {
		return ErrPreferencesRequired
	}
	if input.Actor.ID == "" {
		return ErrActorRequired
	}

	if err := c.guard.Enforce(ctx, input.Actor, access.ActionPreferencesWrite, userID); err != nil {
		return err
	}
	enabled, err := featureEnabled(ctx, c.gate, featurePreferencesWrite, userID)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrWritesDisabled
	}

	userCtx, err := c.context.Build(ctx, userID)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(input.Preferences))
	for key := range input.Preferences {
		if strings.TrimSpace(key) == "" {
			return ErrPreferenceKeyRequired
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		schema, err := c.schemas.QueryByKey(ctx, key)
		if err != nil {
			return err
		}
		if err := policy.EnsureValueAllowed(schema, userCtx, input.Preferences[key]); err != nil {
			return err
		}
	}

	ts := now(c.clock)
	saved := make([]types.StoredPreference, 0, len(keys))
	for _, key := range keys {
		value := input.Preferences[key]
		existing, err := c.prefs.GetPreference(ctx, userID, key)
		if err != nil {
			return err
		}
		oldValue := ""
		if existing != nil {
			oldValue = existing.Value
		}

		if value == nil {
			if existing == nil {
				continue
			}
			if err := c.prefs.DeletePreference(ctx, userID, key); err != nil {
				return err
			}
			c.appendAudit(ctx, types.PreferenceVersion{
				UserID:        userID,
				PreferenceKey: key,
				Action:        types.VersionActionDelete,
				OldValue:      oldValue,
				Timestamp:     ts,
			})
			emitPreferenceHook(ctx, c.hooks, types.PreferenceEvent{
				UserID:     userID,
				Key:        key,
				Action:     "preference.delete",
				ActorID:    input.Actor.ID,
				OccurredAt: ts,
			})
			continue
		}

		encoded, err := encodeValue(value)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid preference value").
				WithTextCode("PREFERENCE_VALUE_INVALID")
		}
		record, err := c.prefs.PutPreference(ctx, types.StoredPreference{
			UserID:        userID,
			PreferenceKey: key,
			Value:         encoded,
			UpdatedAt:     ts,
		})
		if err != nil {
			return err
		}
		if record != nil {
			saved = append(saved, *record)
		}
		c.appendAudit(ctx, types.PreferenceVersion{
			UserID:        userID,
			PreferenceKey: key,
			Action:        types.VersionActionUpsert,
			OldValue:      oldValue,
			NewValue:      encoded,
			Timestamp:     ts,
		})
		emitPreferenceHook(ctx, c.hooks, types.PreferenceEvent{
			UserID:     userID,
			Key:        key,
			Action:     "preference.set",
			ActorID:    input.Actor.ID,
			OccurredAt: ts,
		})
	}

	if input.Result != nil {
		*input.Result = saved
	}
	return nil
}

// appendAudit is best-effort: a failed append never rolls back the write it
// describes.
func (c *PreferenceSetCommand) appendAudit(ctx context.Context, version types.PreferenceVersion) {
	appendAudit(ctx, c.audit, c.logger, version)
}

func appendAudit(ctx context.Context, audit types.AuditStore, logger types.Logger, version types.PreferenceVersion) {
	if audit == nil {
		return
	}
	if err := audit.Append(ctx, version); err != nil && logger != nil {
		logger.Error("preference audit append failed", err,
			"user_id", version.UserID,
			"preference_key", version.PreferenceKey,
			"action", string(version.Action),
		)
	}
}

func encodeValue(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
