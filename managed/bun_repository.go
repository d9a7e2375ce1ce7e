package managed

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-prefs/pkg/types"
)

// RepositoryConfig wires the Bun-backed managed schema store.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
}

type schemaStore interface {
	repository.Repository[*Record]
}

// Repository implements types.SchemaStore. The schema set is read-heavy and
// administratively curated, so hosts typically enable the cache decorator.
type Repository struct {
	schemaStore
}

// NewRepository constructs the schema repository, optionally wrapping the
// backing store with the repository cache.
func NewRepository(cfg RepositoryConfig, options ...RepositoryOption) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("managed: db or repository required")
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

	opts := applyRepositoryOptions(options)
	if opts.CacheEnabled {
		if _, ok := repo.(*repositorycache.CachedRepository[*Record]); !ok {
			cacheConfig := cache.DefaultConfig()
			if opts.CacheConfig != nil {
				cacheConfig = *opts.CacheConfig
			}
			service, err := cache.NewCacheService(cacheConfig)
			if err != nil {
				return nil, err
			}
			repo = repositorycache.New(repo, service, cache.NewDefaultKeySerializer())
		}
	}

	return &Repository{schemaStore: repo}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.SchemaStore              = (*Repository)(nil)
)

// ScanAll returns every schema entry ordered by key then scope so dedup by
// first occurrence is deterministic: the most generic scope sorts first.
func (r *Repository) ScanAll(ctx context.Context) ([]types.ManagedSchema, error) {
	rows, _, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("preference_key ASC, scope ASC")
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.ManagedSchema, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

// QueryByKey returns the authoritative schema entry for the key, preferring
// the most generic scope. Missing keys yield (nil, nil).
func (r *Repository) QueryByKey(ctx context.Context, preferenceKey string) (*types.ManagedSchema, error) {
	preferenceKey = strings.TrimSpace(preferenceKey)
	if preferenceKey == "" {
		return nil, nil
	}
	rows, _, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("preference_key = ?", preferenceKey).
			OrderExpr("scope ASC").
			Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	schema := toDomain(rows[0])
	return &schema, nil
}

// UpsertSchema inserts or replaces a schema entry keyed by (key, scope).
// Exposed for admin tooling and seeds.
func (r *Repository) UpsertSchema(ctx context.Context, schema types.ManagedSchema) (*types.ManagedSchema, error) {
	key := strings.TrimSpace(schema.PreferenceKey)
	if key == "" {
		return nil, errors.New("managed: preference key required")
	}
	payload, err := fromDomain(schema)
	if err != nil {
		return nil, err
	}
	payload.PreferenceKey = key

	existing, _, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("preference_key = ?", key).
			Where("scope = ?", payload.Scope).
			Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		payload.ID = existing[0].ID
		updated, err := r.Update(ctx, payload)
		if err != nil {
			return nil, err
		}
		out := toDomain(updated)
		return &out, nil
	}
	payload.ID = uuid.New()
	created, err := r.Create(ctx, payload)
	if err != nil {
		return nil, err
	}
	out := toDomain(created)
	return &out, nil
}

func toDomain(rec *Record) types.ManagedSchema {
	if rec == nil {
		return types.ManagedSchema{}
	}
	schema := types.ManagedSchema{
		PreferenceKey:    rec.PreferenceKey,
		Scope:            rec.Scope,
		ChildOverride:    rec.ChildOverride,
		MinAge:           copyIntPtr(rec.MinAge),
		MaxAge:           copyIntPtr(rec.MaxAge),
		CountryOverrides: cloneMap(rec.CountryOverrides),
	}
	if rec.BaseDefault != "" {
		// A corrupt column degrades to "no default" rather than failing the
		// whole scan.
		var value any
		if err := json.Unmarshal([]byte(rec.BaseDefault), &value); err == nil {
			schema.BaseDefault = value
		}
	}
	return schema
}

func fromDomain(schema types.ManagedSchema) (*Record, error) {
	rec := &Record{
		PreferenceKey:    strings.TrimSpace(schema.PreferenceKey),
		Scope:            schema.Scope,
		ChildOverride:    schema.ChildOverride,
		MinAge:           copyIntPtr(schema.MinAge),
		MaxAge:           copyIntPtr(schema.MaxAge),
		CountryOverrides: cloneMap(schema.CountryOverrides),
	}
	if schema.BaseDefault != nil {
		raw, err := json.Marshal(schema.BaseDefault)
		if err != nil {
			return nil, err
		}
		rec.BaseDefault = string(raw)
	}
	return rec, nil
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneMap(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for k, v := range origin {
		out[k] = v
	}
	return out
}
