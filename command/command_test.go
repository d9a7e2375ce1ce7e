package command

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-prefs/pkg/types"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type memoryPrefStore struct {
	records map[string]map[string]types.StoredPreference
	putErr  error
}

func newMemoryPrefStore() *memoryPrefStore {
	return &memoryPrefStore{records: make(map[string]map[string]types.StoredPreference)}
}

func (s *memoryPrefStore) GetPreference(_ context.Context, userID, key string) (*types.StoredPreference, error) {
	record, ok := s.records[userID][key]
	if !ok {
		return nil, nil
	}
	copy := record
	return &copy, nil
}

func (s *memoryPrefStore) PutPreference(_ context.Context, pref types.StoredPreference) (*types.StoredPreference, error) {
	if s.putErr != nil {
		return nil, s.putErr
	}
	if s.records[pref.UserID] == nil {
		s.records[pref.UserID] = make(map[string]types.StoredPreference)
	}
	s.records[pref.UserID][pref.PreferenceKey] = pref
	copy := pref
	return &copy, nil
}

func (s *memoryPrefStore) DeletePreference(_ context.Context, userID, key string) error {
	delete(s.records[userID], key)
	return nil
}

func (s *memoryPrefStore) ListByUser(_ context.Context, userID string) ([]types.StoredPreference, error) {
	out := make([]types.StoredPreference, 0, len(s.records[userID]))
	for _, record := range s.records[userID] {
		out = append(out, record)
	}
	return out, nil
}

type memorySchemaStore struct {
	schemas map[string]types.ManagedSchema
}

func (s *memorySchemaStore) ScanAll(context.Context) ([]types.ManagedSchema, error) {
	out := make([]types.ManagedSchema, 0, len(s.schemas))
	for _, schema := range s.schemas {
		out = append(out, schema)
	}
	return out, nil
}

func (s *memorySchemaStore) QueryByKey(_ context.Context, key string) (*types.ManagedSchema, error) {
	schema, ok := s.schemas[key]
	if !ok {
		return nil, nil
	}
	copy := schema
	return &copy, nil
}

type memoryAuditStore struct {
	appended  []types.PreferenceVersion
	appendErr error
}

func (s *memoryAuditStore) Append(_ context.Context, version types.PreferenceVersion) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, version)
	return nil
}

func (s *memoryAuditStore) GetVersion(_ context.Context, userID, versionKey string) (*types.PreferenceVersion, error) {
	for _, version := range s.appended {
		if version.UserID == userID && version.VersionKey == versionKey {
			copy := version
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *memoryAuditStore) ListVersions(context.Context, types.VersionFilter) (types.VersionPage, error) {
	return types.VersionPage{Items: append([]types.PreferenceVersion{}, s.appended...)}, nil
}

type stubContextBuilder struct {
	ctx types.UserContext
	err error
}

func (s *stubContextBuilder) Build(_ context.Context, userID string) (types.UserContext, error) {
	if s.err != nil {
		return types.UserContext{}, s.err
	}
	out := s.ctx
	if out.User.ID == "" {
		out.User.ID = userID
	}
	return out, nil
}

type stubFeatureGate struct {
	enabled bool
	err     error
	keys    []string
}

func (s *stubFeatureGate) Enabled(_ context.Context, key string, _ ...featuregate.ResolveOption) (bool, error) {
	s.keys = append(s.keys, key)
	if s.err != nil {
		return false, s.err
	}
	return s.enabled, nil
}

type commandFixture struct {
	prefs   *memoryPrefStore
	schemas *memorySchemaStore
	audit   *memoryAuditStore
	context *stubContextBuilder
	clock   fixedClock
	events  []types.PreferenceEvent
}

func newCommandFixture() *commandFixture {
	return &commandFixture{
		prefs:   newMemoryPrefStore(),
		schemas: &memorySchemaStore{schemas: map[string]types.ManagedSchema{}},
		audit:   &memoryAuditStore{},
		context: &stubContextBuilder{},
		clock:   fixedClock{now: time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)},
	}
}

func (f *commandFixture) config() PreferenceCommandConfig {
	return PreferenceCommandConfig{
		Preferences: f.prefs,
		Schemas:     f.schemas,
		Audit:       f.audit,
		Context:     f.context,
		Clock:       f.clock,
		Hooks: types.Hooks{
			AfterPreferenceChange: func(_ context.Context, event types.PreferenceEvent) {
				f.events = append(f.events, event)
			},
		},
	}
}

func TestPreferenceSetCommand_PersistsAndAudits(t *testing.T) {
	fixture := newCommandFixture()
	cmd := NewPreferenceSetCommand(fixture.config())

	saved := &[]types.StoredPreference{}
	err := cmd.Execute(context.Background(), PreferenceSetInput{
		UserID: "user-1",
		Preferences: map[string]any{
			"notifications.email": false,
			"content.locale":      "en-GB",
		},
		Actor:  types.ActorRef{ID: "user-1", Role: "adult"},
		Result: saved,
	})
	require.NoError(t, err)
	require.Len(t, *saved, 2)

	record, err := fixture.prefs.GetPreference(context.Background(), "user-1", "notifications.email")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, "false", record.Value)
	require.Equal(t, fixture.clock.now, record.UpdatedAt)

	require.Len(t, fixture.audit.appended, 2)
	for _, version := range fixture.audit.appended {
		require.Equal(t, types.VersionActionUpsert, version.Action)
		require.Equal(t, fixture.clock.now, version.Timestamp)
	}
	require.Len(t, fixture.events, 2)
	require.Equal(t, "preference.set", fixture.events[0].Action)
}

func TestPreferenceSetCommand_NilValueRemoves(t *testing.T) {
	fixture := newCommandFixture()
	_, err := fixture.prefs.PutPreference(context.Background(), types.StoredPreference{
		UserID: "user-1", PreferenceKey: "content.locale", Value: `"en-GB"`,
	})
	require.NoError(t, err)

	cmd := NewPreferenceSetCommand(fixture.config())
	err = cmd.Execute(context.Background(), PreferenceSetInput{
		UserID:      "user-1",
		Preferences: map[string]any{"content.locale": nil},
		Actor:       types.ActorRef{ID: "user-1"},
	})
	require.NoError(t, err)

	record, err := fixture.prefs.GetPreference(context.Background(), "user-1", "content.locale")
	require.NoError(t, err)
	require.Nil(t, record)

	require.Len(t, fixture.audit.appended, 1)
	require.Equal(t, types.VersionActionDelete, fixture.audit.appended[0].Action)
	require.Equal(t, `"en-GB"`, fixture.audit.appended[0].OldValue)
	require.Equal(t, "preference.delete", fixture.events[0].Action)
}

func TestPreferenceSetCommand_RemovingAbsentKeyIsNoop(t *testing.T) {
	fixture := newCommandFixture()
	cmd := NewPreferenceSetCommand(fixture.config())

	err := cmd.Execute(context.Background(), PreferenceSetInput{
		UserID:      "user-1",
		Preferences: map[string]any{"never.set": nil},
		Actor:       types.ActorRef{ID: "user-1"},
	})
	require.NoError(t, err)
	require.Empty(t, fixture.audit.appended)
	require.Empty(t, fixture.events)
}

func TestPreferenceSetCommand_DeniedKeyFailsWholeBatch(t *testing.T) {
	fixture := newCommandFixture()
	fixture.schemas.schemas["privacy.share"] = types.ManagedSchema{
		PreferenceKey: "privacy.share",
		ChildOverride: "locked",
	}
	fixture.context.ctx = types.UserContext{IsChild: true}

	cmd := NewPreferenceSetCommand(fixture.config())
	err := cmd.Execute(context.Background(), PreferenceSetInput{
		UserID: "child-1",
		Preferences: map[string]any{
			"a.allowed":     "yes",
			"privacy.share": true,
		},
		Actor: types.ActorRef{ID: "child-1", Role: "child"},
	})
	require.Error(t, err)

	// Nothing was written: validation runs for every key before the first write.
	record, getErr := fixture.prefs.GetPreference(context.Background(), "child-1", "a.allowed")
	require.NoError(t, getErr)
	require.Nil(t, record)
	require.Empty(t, fixture.audit.appended)
}

func TestPreferenceSetCommand_InputValidation(t *testing.T) {
	fixture := newCommandFixture()
	cmd := NewPreferenceSetCommand(fixture.config())

	err := cmd.Execute(context.Background(), PreferenceSetInput{
		Preferences: map[string]any{"a": 1},
		Actor:       types.ActorRef{ID: "x"},
	})
	require.ErrorIs(t, err, ErrUserIDRequired)

	err = cmd.Execute(context.Background(), PreferenceSetInput{
		UserID: "user-1",
		Actor:  types.ActorRef{ID: "x"},
	})
	require.ErrorIs(t, err, ErrPreferencesRequired)

	err = cmd.Execute(context.Background(), PreferenceSetInput{
		UserID:      "user-1",
		Preferences: map[string]any{"a": 1},
	})
	require.ErrorIs(t, err, ErrActorRequired)

	err = cmd.Execute(context.Background(), PreferenceSetInput{
		UserID:      "user-1",
		Preferences: map[string]any{" ": 1},
		Actor:       types.ActorRef{ID: "x"},
	})
	require.ErrorIs(t, err, ErrPreferenceKeyRequired)
}

func TestPreferenceSetCommand_FeatureGateDisabled(t *testing.T) {
	fixture := newCommandFixture()
	cfg := fixture.config()
	gate := &stubFeatureGate{enabled: false}
	cfg.Gate = gate

	cmd := NewPreferenceSetCommand(cfg)
	err := cmd.Execute(context.Background(), PreferenceSetInput{
		UserID:      "user-1",
		Preferences: map[string]any{"a": 1},
		Actor:       types.ActorRef{ID: "user-1"},
	})
	require.ErrorIs(t, err, ErrWritesDisabled)
	require.Equal(t, []string{featurePreferencesWrite}, gate.keys)
}

func TestPreferenceSetCommand_AuditFailureDoesNotFailWrite(t *testing.T) {
	fixture := newCommandFixture()
	fixture.audit.appendErr = errors.New("audit sink down")

	cmd := NewPreferenceSetCommand(fixture.config())
	err := cmd.Execute(context.Background(), PreferenceSetInput{
		UserID:      "user-1",
		Preferences: map[string]any{"a": 1},
		Actor:       types.ActorRef{ID: "user-1"},
	})
	require.NoError(t, err)

	record, err := fixture.prefs.GetPreference(context.Background(), "user-1", "a")
	require.NoError(t, err)
	require.NotNil(t, record)
}

func TestPreferenceDeleteCommand_RemovesAndAudits(t *testing.T) {
	fixture := newCommandFixture()
	_, err := fixture.prefs.PutPreference(context.Background(), types.StoredPreference{
		UserID: "user-1", PreferenceKey: "a", Value: `1`,
	})
	require.NoError(t, err)

	cmd := NewPreferenceDeleteCommand(fixture.config())
	err = cmd.Execute(context.Background(), PreferenceDeleteInput{
		UserID: "user-1",
		Key:    "a",
		Actor:  types.ActorRef{ID: "user-1"},
	})
	require.NoError(t, err)

	record, err := fixture.prefs.GetPreference(context.Background(), "user-1", "a")
	require.NoError(t, err)
	require.Nil(t, record)
	require.Len(t, fixture.audit.appended, 1)
	require.Equal(t, types.VersionActionDelete, fixture.audit.appended[0].Action)
	require.Equal(t, `1`, fixture.audit.appended[0].OldValue)
}

func TestPreferenceDeleteCommand_AbsentKeyIsNoop(t *testing.T) {
	fixture := newCommandFixture()
	cmd := NewPreferenceDeleteCommand(fixture.config())

	err := cmd.Execute(context.Background(), PreferenceDeleteInput{
		UserID: "user-1",
		Key:    "never.set",
		Actor:  types.ActorRef{ID: "user-1"},
	})
	require.NoError(t, err)
	require.Empty(t, fixture.audit.appended)
}

func TestPreferenceRevertCommand_RestoresOldValue(t *testing.T) {
	fixture := newCommandFixture()
	versionKey := "content.locale#2025-02-01T00:00:00.000Z"
	fixture.audit.appended = append(fixture.audit.appended, types.PreferenceVersion{
		UserID:        "user-1",
		VersionKey:    versionKey,
		PreferenceKey: "content.locale",
		Action:        types.VersionActionUpsert,
		OldValue:      `"en-GB"`,
		NewValue:      `"fr-FR"`,
	})
	_, err := fixture.prefs.PutPreference(context.Background(), types.StoredPreference{
		UserID: "user-1", PreferenceKey: "content.locale", Value: `"fr-FR"`,
	})
	require.NoError(t, err)

	cmd := NewPreferenceRevertCommand(fixture.config())
	result := &types.StoredPreference{}
	err = cmd.Execute(context.Background(), PreferenceRevertInput{
		UserID:     "user-1",
		Key:        "content.locale",
		VersionKey: versionKey,
		Actor:      types.ActorRef{ID: "user-1"},
		Result:     result,
	})
	require.NoError(t, err)
	require.Equal(t, `"en-GB"`, result.Value)

	record, err := fixture.prefs.GetPreference(context.Background(), "user-1", "content.locale")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, `"en-GB"`, record.Value)

	last := fixture.audit.appended[len(fixture.audit.appended)-1]
	require.Equal(t, types.VersionActionRevert, last.Action)
	require.Equal(t, `"fr-FR"`, last.OldValue)
	require.Equal(t, `"en-GB"`, last.NewValue)
}

func TestPreferenceRevertCommand_EmptyOldValueDeletes(t *testing.T) {
	fixture := newCommandFixture()
	versionKey := "a#2025-02-01T00:00:00.000Z"
	fixture.audit.appended = append(fixture.audit.appended, types.PreferenceVersion{
		UserID:        "user-1",
		VersionKey:    versionKey,
		PreferenceKey: "a",
		Action:        types.VersionActionUpsert,
		NewValue:      `1`,
	})
	_, err := fixture.prefs.PutPreference(context.Background(), types.StoredPreference{
		UserID: "user-1", PreferenceKey: "a", Value: `1`,
	})
	require.NoError(t, err)

	cmd := NewPreferenceRevertCommand(fixture.config())
	result := &types.StoredPreference{Value: "sentinel"}
	err = cmd.Execute(context.Background(), PreferenceRevertInput{
		UserID:     "user-1",
		Key:        "a",
		VersionKey: versionKey,
		Actor:      types.ActorRef{ID: "user-1"},
		Result:     result,
	})
	require.NoError(t, err)
	require.Equal(t, types.StoredPreference{}, *result)

	record, err := fixture.prefs.GetPreference(context.Background(), "user-1", "a")
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestPreferenceRevertCommand_VersionKeyMismatch(t *testing.T) {
	fixture := newCommandFixture()
	cmd := NewPreferenceRevertCommand(fixture.config())

	err := cmd.Execute(context.Background(), PreferenceRevertInput{
		UserID:     "user-1",
		Key:        "a",
		VersionKey: "b#2025-02-01T00:00:00.000Z",
		Actor:      types.ActorRef{ID: "user-1"},
	})
	require.Error(t, err)
	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich))
	require.Equal(t, "VERSION_KEY_MISMATCH", rich.TextCode)
}

func TestPreferenceRevertCommand_UnknownVersion(t *testing.T) {
	fixture := newCommandFixture()
	cmd := NewPreferenceRevertCommand(fixture.config())

	err := cmd.Execute(context.Background(), PreferenceRevertInput{
		UserID:     "user-1",
		Key:        "a",
		VersionKey: "a#2025-02-01T00:00:00.000Z",
		Actor:      types.ActorRef{ID: "user-1"},
	})
	require.Error(t, err)
	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich))
	require.Equal(t, "VERSION_NOT_FOUND", rich.TextCode)
}

func TestPreferenceRevertCommand_PolicyBlocksRestore(t *testing.T) {
	fixture := newCommandFixture()
	fixture.schemas.schemas["privacy.share"] = types.ManagedSchema{
		PreferenceKey: "privacy.share",
		ChildOverride: "locked",
	}
	fixture.context.ctx = types.UserContext{IsChild: true}
	versionKey := "privacy.share#2025-02-01T00:00:00.000Z"
	fixture.audit.appended = append(fixture.audit.appended, types.PreferenceVersion{
		UserID:        "child-1",
		VersionKey:    versionKey,
		PreferenceKey: "privacy.share",
		Action:        types.VersionActionDelete,
		OldValue:      `true`,
	})

	cmd := NewPreferenceRevertCommand(fixture.config())
	err := cmd.Execute(context.Background(), PreferenceRevertInput{
		UserID:     "child-1",
		Key:        "privacy.share",
		VersionKey: versionKey,
		Actor:      types.ActorRef{ID: "child-1", Role: "child"},
	})
	require.Error(t, err)
	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich))
	require.Equal(t, "PREFERENCE_LOCKED", rich.TextCode)
}

func TestPreferenceRevertCommand_FeatureGateDisabled(t *testing.T) {
	fixture := newCommandFixture()
	cfg := fixture.config()
	gate := &stubFeatureGate{enabled: false}
	cfg.Gate = gate

	cmd := NewPreferenceRevertCommand(cfg)
	err := cmd.Execute(context.Background(), PreferenceRevertInput{
		UserID:     "user-1",
		Key:        "a",
		VersionKey: "a#2025-02-01T00:00:00.000Z",
		Actor:      types.ActorRef{ID: "user-1"},
	})
	require.ErrorIs(t, err, ErrRevertDisabled)
	require.Equal(t, []string{featurePreferencesRevert}, gate.keys)
}

func TestPreferenceRevertCommand_RestoreRequiresPolicyDeps(t *testing.T) {
	fixture := newCommandFixture()
	versionKey := "content.locale#2025-02-01T00:00:00.000Z"
	fixture.audit.appended = append(fixture.audit.appended, types.PreferenceVersion{
		UserID:        "user-1",
		VersionKey:    versionKey,
		PreferenceKey: "content.locale",
		Action:        types.VersionActionUpsert,
		OldValue:      `"en-GB"`,
	})
	input := PreferenceRevertInput{
		UserID:     "user-1",
		Key:        "content.locale",
		VersionKey: versionKey,
		Actor:      types.ActorRef{ID: "user-1"},
	}

	cfg := fixture.config()
	cfg.Schemas = nil
	err := NewPreferenceRevertCommand(cfg).Execute(context.Background(), input)
	require.ErrorIs(t, err, types.ErrMissingSchemaStore)

	cfg = fixture.config()
	cfg.Context = nil
	err = NewPreferenceRevertCommand(cfg).Execute(context.Background(), input)
	require.ErrorIs(t, err, types.ErrMissingContextBuilder)

	// The restore never ran without its policy dependencies.
	record, err := fixture.prefs.GetPreference(context.Background(), "user-1", "content.locale")
	require.NoError(t, err)
	require.Nil(t, record)
}
