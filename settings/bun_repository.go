package settings

import (
	"context"
	"errors"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-prefs/pkg/types"
)

// RepositoryConfig wires the Bun-backed preference store.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type preferenceStore interface {
	repository.Repository[*Record]
}

// Repository implements types.PreferenceStore.
type Repository struct {
	preferenceStore
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs the default preference repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("settings: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(rec *Record) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *Record, id uuid.UUID) {
				if rec != nil {
					rec.ID = id
				}
			},
		})
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	return &Repository{
		preferenceStore: repo,
		clock:           clock,
		idGen:           idGen,
	}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.PreferenceStore          = (*Repository)(nil)
)

// GetPreference fetches the stored value for (user, key). Missing rows yield
// (nil, nil); absence means "defer to the managed default".
func (r *Repository) GetPreference(ctx context.Context, userID, preferenceKey string) (*types.StoredPreference, error) {
	row, err := r.findExisting(ctx, userID, preferenceKey)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	pref := toDomain(row)
	return &pref, nil
}

// PutPreference upserts the stored value. The write is atomic at (user, key)
// granularity; concurrent writers are last-write-wins.
func (r *Repository) PutPreference(ctx context.Context, pref types.StoredPreference) (*types.StoredPreference, error) {
	userID := strings.TrimSpace(pref.UserID)
	key := strings.TrimSpace(pref.PreferenceKey)
	if userID == "" {
		return nil, types.ErrUserIDRequired
	}
	if key == "" {
		return nil, errors.New("settings: preference key required")
	}
	now := pref.UpdatedAt
	if now.IsZero() {
		now = r.clock.Now()
	}

	existing, err := r.findExisting(ctx, userID, key)
	switch {
	case err == nil && existing != nil:
		existing.Value = pref.Value
		existing.UpdatedAt = now
		updated, err := r.Update(ctx, existing)
		if err != nil {
			return nil, err
		}
		out := toDomain(updated)
		return &out, nil
	case repository.IsRecordNotFound(err):
		created, err := r.Create(ctx, &Record{
			ID:            r.idGen.UUID(),
			UserID:        userID,
			PreferenceKey: key,
			Value:         pref.Value,
			UpdatedAt:     now,
		})
		if err != nil {
			return nil, err
		}
		out := toDomain(created)
		return &out, nil
	default:
		return nil, err
	}
}

// DeletePreference removes the stored row. Deleting an absent row is a no-op.
func (r *Repository) DeletePreference(ctx context.Context, userID, preferenceKey string) error {
	existing, err := r.findExisting(ctx, userID, preferenceKey)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil
		}
		return err
	}
	return r.Delete(ctx, existing)
}

// ListByUser returns every stored preference for the user ordered by key.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]types.StoredPreference, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, types.ErrUserIDRequired
	}
	rows, _, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).OrderExpr("preference_key ASC")
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.StoredPreference, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

func (r *Repository) findExisting(ctx context.Context, userID, preferenceKey string) (*Record, error) {
	userID = strings.TrimSpace(userID)
	key := strings.TrimSpace(preferenceKey)
	if userID == "" || key == "" {
		return nil, repository.NewRecordNotFound()
	}
	rows, _, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).
			Where("preference_key = ?", key).
			Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.NewRecordNotFound()
	}
	return rows[0], nil
}

func toDomain(rec *Record) types.StoredPreference {
	if rec == nil {
		return types.StoredPreference{}
	}
	return types.StoredPreference{
		UserID:        rec.UserID,
		PreferenceKey: rec.PreferenceKey,
		Value:         rec.Value,
		UpdatedAt:     rec.UpdatedAt,
	}
}
