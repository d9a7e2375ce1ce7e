package crudsvc

import (
	"encoding/json"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"

	"github.com/goliatone/go-prefs/command"
	"github.com/goliatone/go-prefs/crudguard"
	"github.com/goliatone/go-prefs/pkg/types"
	"github.com/goliatone/go-prefs/settings"
)

type preferenceStore interface {
	GetByID(ctx crud.Context, id string, criteria ...repository.SelectCriteria) (*settings.Record, error)
}

// PreferenceServiceConfig wires dependencies for the preference CRUD adapter.
type PreferenceServiceConfig struct {
	Guard       GuardAdapter
	Preferences types.PreferenceStore
	Set         gocommand.Commander[command.PreferenceSetInput]
	Delete      gocommand.Commander[command.PreferenceDeleteInput]
}

// PreferenceService routes go-crud operations through preference commands so
// invariants (guard enforcement, policy, audit, hooks) remain intact.
type PreferenceService struct {
	guard  GuardAdapter
	prefs  types.PreferenceStore
	set    gocommand.Commander[command.PreferenceSetInput]
	del    gocommand.Commander[command.PreferenceDeleteInput]
	logger types.Logger
}

// NewPreferenceService constructs the adapter.
func NewPreferenceService(cfg PreferenceServiceConfig, opts ...ServiceOption) *PreferenceService {
	options := applyOptions(opts)
	return &PreferenceService{
		guard:  cfg.Guard,
		prefs:  cfg.Preferences,
		set:    cfg.Set,
		del:    cfg.Delete,
		logger: options.logger,
	}
}

func (s *PreferenceService) Create(ctx crud.Context, record *settings.Record) (*settings.Record, error) {
	return s.upsertRecord(ctx, crud.OpCreate, record)
}

func (s *PreferenceService) CreateBatch(ctx crud.Context, records []*settings.Record) ([]*settings.Record, error) {
	created := make([]*settings.Record, 0, len(records))
	for _, record := range records {
		rec, err := s.upsertRecord(ctx, crud.OpCreateBatch, record)
		if err != nil {
			return nil, err
		}
		created = append(created, rec)
	}
	return created, nil
}

func (s *PreferenceService) Update(ctx crud.Context, record *settings.Record) (*settings.Record, error) {
	return s.upsertRecord(ctx, crud.OpUpdate, record)
}

func (s *PreferenceService) UpdateBatch(ctx crud.Context, records []*settings.Record) ([]*settings.Record, error) {
	updated := make([]*settings.Record, 0, len(records))
	for _, record := range records {
		rec, err := s.upsertRecord(ctx, crud.OpUpdateBatch, record)
		if err != nil {
			return nil, err
		}
		updated = append(updated, rec)
	}
	return updated, nil
}

func (s *PreferenceService) Delete(ctx crud.Context, record *settings.Record) error {
	if s.del == nil {
		return goerrors.New("preference delete command not wired", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	domain := settings.ToStoredPreference(record)
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpDelete,
		TargetID:  domain.UserID,
	})
	if err != nil {
		return err
	}
	return s.del.Execute(ctx.UserContext(), command.PreferenceDeleteInput{
		UserID: domain.UserID,
		Key:    domain.PreferenceKey,
		Actor:  res.Actor,
	})
}

func (s *PreferenceService) DeleteBatch(ctx crud.Context, records []*settings.Record) error {
	for _, record := range records {
		if err := s.Delete(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *PreferenceService) Index(ctx crud.Context, _ []repository.SelectCriteria) ([]*settings.Record, int, error) {
	if s.prefs == nil {
		return nil, 0, goerrors.New("preference store missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	userID := queryString(ctx, "user_id")
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpList,
		TargetID:  userID,
	})
	if err != nil {
		return nil, 0, err
	}
	if userID == "" {
		userID = res.Actor.ID
	}

	stored, err := s.prefs.ListByUser(ctx.UserContext(), userID)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*settings.Record, 0, len(stored))
	for _, pref := range stored {
		out = append(out, settings.FromStoredPreference(pref))
	}
	return out, len(out), nil
}

func (s *PreferenceService) Show(ctx crud.Context, id string, _ []repository.SelectCriteria) (*settings.Record, error) {
	if s.prefs == nil {
		return nil, goerrors.New("preference store missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	// The route identifier is "<user_id>/<preference_key>"; the surrogate row
	// id is an internal detail transports never see.
	userID, key, ok := splitPreferenceID(id)
	if !ok {
		return nil, goerrors.New("preference id must be user_id/key", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	if _, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: crud.OpRead,
		TargetID:  userID,
	}); err != nil {
		return nil, err
	}
	pref, err := s.prefs.GetPreference(ctx.UserContext(), userID, key)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		return nil, goerrors.New("preference not found", goerrors.CategoryNotFound).WithCode(goerrors.CodeNotFound)
	}
	return settings.FromStoredPreference(*pref), nil
}

func (s *PreferenceService) upsertRecord(ctx crud.Context, op crud.CrudOperation, record *settings.Record) (*settings.Record, error) {
	if s.set == nil {
		return nil, goerrors.New("preference set command missing", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	domain := settings.ToStoredPreference(record)
	res, err := s.guard.Enforce(crudguard.GuardInput{
		Context:   ctx,
		Operation: op,
		TargetID:  domain.UserID,
	})
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal([]byte(domain.Value), &value); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "preference value must be valid JSON").
			WithCode(goerrors.CodeBadRequest)
	}

	var saved []types.StoredPreference
	input := command.PreferenceSetInput{
		UserID:      domain.UserID,
		Preferences: map[string]any{domain.PreferenceKey: value},
		Actor:       res.Actor,
		Result:      &saved,
	}
	if err := s.set.Execute(ctx.UserContext(), input); err != nil {
		return nil, err
	}
	if len(saved) > 0 {
		return settings.FromStoredPreference(saved[0]), nil
	}
	return settings.FromStoredPreference(domain), nil
}

func splitPreferenceID(id string) (string, string, bool) {
	id = strings.TrimSpace(id)
	parts := strings.SplitN(id, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
