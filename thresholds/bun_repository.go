package thresholds

import (
	"context"
	"errors"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-prefs/pkg/types"
)

// RepositoryConfig wires the Bun-backed age threshold store.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
}

type thresholdStore interface {
	repository.Repository[*Record]
}

// Repository implements types.AgeThresholdStore.
type Repository struct {
	thresholdStore
}

// NewRepository constructs the threshold repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("thresholds: db or repository required")
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
	return &Repository{thresholdStore: repo}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.AgeThresholdStore        = (*Repository)(nil)
)

// GetThreshold returns the cutoff for the region. Missing regions and rows
// without a threshold value yield (nil, nil); fallback to the DEFAULT row is
// the resolver's responsibility.
func (r *Repository) GetThreshold(ctx context.Context, regionCode string) (*types.AgeThreshold, error) {
	regionCode = strings.TrimSpace(regionCode)
	if regionCode == "" {
		return nil, nil
	}
	rows, _, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("region_code = ?", regionCode).Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].AgeThreshold == nil {
		return nil, nil
	}
	return &types.AgeThreshold{
		RegionCode:   rows[0].RegionCode,
		AgeThreshold: *rows[0].AgeThreshold,
	}, nil
}

// PutThreshold inserts or replaces the cutoff for a region. Exposed for admin
// tooling and seeds.
func (r *Repository) PutThreshold(ctx context.Context, threshold types.AgeThreshold) error {
	region := strings.TrimSpace(threshold.RegionCode)
	if region == "" {
		return errors.New("thresholds: region code required")
	}
	cutoff := threshold.AgeThreshold
	rows, _, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("region_code = ?", region).Limit(1)
	})
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		rows[0].AgeThreshold = &cutoff
		_, err = r.Update(ctx, rows[0])
		return err
	}
	_, err = r.Create(ctx, &Record{
		ID:           uuid.New(),
		RegionCode:   region,
		AgeThreshold: &cutoff,
	})
	return err
}
