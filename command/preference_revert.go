package command

import (
	"context"
	"encoding/json"
	"strings"

	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	featuregate "github.com/goliatone/go-featuregate/gate"

	"github.com/goliatone/go-prefs/access"
	"github.com/goliatone/go-prefs/pkg/types"
	"github.com/goliatone/go-prefs/policy"
)

// PreferenceRevertInput identifies the audit record to restore.
type PreferenceRevertInput struct {
	UserID     string
	Key        string
	VersionKey string
	Actor      types.ActorRef
	Result     *types.StoredPreference
}

// PreferenceRevertCommand restores the pre-change value captured by an audit
// record. Reverting to "no prior value" deletes the stored row.
type PreferenceRevertCommand struct {
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

// NewPreferenceRevertCommand constructs the handler.
func NewPreferenceRevertCommand(cfg PreferenceCommandConfig) *PreferenceRevertCommand {
	return &PreferenceRevertCommand{
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

var _ gocommand.Commander[PreferenceRevertInput] = (*PreferenceRevertCommand)(nil)

// Execute looks up the version, applies policy to the restored value, and
// writes it back with a REVERT audit record.
func (c *PreferenceRevertCommand) Execute(ctx context.Context, input PreferenceRevertInput) error {
	if c.prefs == nil {
		return types.ErrMissingPreferenceStore
	}
	if c.audit == nil {
		return types.ErrMissingAuditStore
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return ErrUserIDRequired
	}
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return ErrPreferenceKeyRequired
	}
	versionKey := strings.TrimSpace(input.VersionKey)
	if versionKey == "" {
		return ErrVersionKeyRequired
	}
	if input.Actor.ID == "" {
		return ErrActorRequired
	}

	if !strings.HasPrefix(versionKey, key+"#") {
		return goerrors.New("version key does not match preference key", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("VERSION_KEY_MISMATCH")
	}

	if err := c.guard.Enforce(ctx, input.Actor, access.ActionPreferencesWrite, userID); err != nil {
		return err
	}
	enabled, err := featureEnabled(ctx, c.gate, featurePreferencesRevert, userID)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrRevertDisabled
	}

	version, err := c.audit.GetVersion(ctx, userID, versionKey)
	if err != nil {
		return err
	}
	if version == nil {
		return goerrors.New("version not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound).
			WithTextCode("VERSION_NOT_FOUND")
	}

	existing, err := c.prefs.GetPreference(ctx, userID, key)
	if err != nil {
		return err
	}
	currentValue := ""
	if existing != nil {
		currentValue = existing.Value
	}

	ts := now(c.clock)
	if version.OldValue == "" {
		// The audit record captured "no prior value": restoring it clears the
		// stored row. Removal never needs a policy check.
		if existing != nil {
			if err := c.prefs.DeletePreference(ctx, userID, key); err != nil {
				return err
			}
		}
		if input.Result != nil {
			*input.Result = types.StoredPreference{}
		}
	} else {
		var restored any
		if err := json.Unmarshal([]byte(version.OldValue), &restored); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "stored version value is not valid JSON").
				WithTextCode("VERSION_VALUE_INVALID")
		}
		if c.schemas == nil {
			return types.ErrMissingSchemaStore
		}
		if c.context == nil {
			return types.ErrMissingContextBuilder
		}
		schema, err := c.schemas.QueryByKey(ctx, key)
		if err != nil {
			return err
		}
		userCtx, err := c.context.Build(ctx, userID)
		if err != nil {
			return err
		}
		if err := policy.EnsureValueAllowed(schema, userCtx, restored); err != nil {
			return err
		}
		record, err := c.prefs.PutPreference(ctx, types.StoredPreference{
			UserID:        userID,
			PreferenceKey: key,
			Value:         version.OldValue,
			UpdatedAt:     ts,
		})
		if err != nil {
			return err
		}
		if input.Result != nil && record != nil {
			*input.Result = *record
		}
	}

	appendAudit(ctx, c.audit, c.logger, types.PreferenceVersion{
		UserID:        userID,
		PreferenceKey: key,
		Action:        types.VersionActionRevert,
		OldValue:      currentValue,
		NewValue:      version.OldValue,
		Timestamp:     ts,
	})
	emitPreferenceHook(ctx, c.hooks, types.PreferenceEvent{
		UserID:     userID,
		Key:        key,
		Action:     "preference.revert",
		ActorID:    input.Actor.ID,
		OccurredAt: ts,
	})
	return nil
}
