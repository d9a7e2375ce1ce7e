package identity

import (
	"context"
	"errors"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-prefs/pkg/types"
)

// RepositoryConfig wires the Bun-backed identity repository.
type RepositoryConfig struct {
	DB    *bun.DB
	Users repository.Repository[*UserRecord]
	Links repository.Repository[*ChildLinkRecord]
	Clock types.Clock
	IDGen types.IDGenerator
}

// Repository implements types.UserStore and types.ChildLinkStore using Bun.
type Repository struct {
	users repository.Repository[*UserRecord]
	links repository.Repository[*ChildLinkRecord]
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs the default identity repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.DB == nil && (cfg.Users == nil || cfg.Links == nil) {
		return nil, errors.New("identity: db or repositories required")
	}
	users := cfg.Users
	if users == nil {
		users = repository.NewRepository(cfg.DB, repository.ModelHandlers[*UserRecord]{
			NewRecord: func() *UserRecord { return &UserRecord{} },
			GetID: func(rec *UserRecord) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *UserRecord, id uuid.UUID) {
				if rec != nil {
					rec.ID = id
				}
			},
		})
	}
	links := cfg.Links
	if links == nil {
		links = repository.NewRepository(cfg.DB, repository.ModelHandlers[*ChildLinkRecord]{
			NewRecord: func() *ChildLinkRecord { return &ChildLinkRecord{} },
			GetID: func(rec *ChildLinkRecord) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *ChildLinkRecord, id uuid.UUID) {
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
		users: users,
		links: links,
		clock: clock,
		idGen: idGen,
	}, nil
}

var (
	_ types.UserStore      = (*Repository)(nil)
	_ types.ChildLinkStore = (*Repository)(nil)
)

// GetUser fetches the identity record. Missing users yield (nil, nil).
func (r *Repository) GetUser(ctx context.Context, userID string) (*types.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	rows, _, err := r.users.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return toUser(rows[0]), nil
}

// GetLink returns the guardian/child link if present, (nil, nil) otherwise.
func (r *Repository) GetLink(ctx context.Context, adultID, childID string) (*types.ChildLink, error) {
	if adultID == "" || childID == "" {
		return nil, nil
	}
	rows, _, err := r.links.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("adult_id = ?", adultID).
			Where("child_id = ?", childID).
			Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	link := toLink(rows[0])
	return &link, nil
}

// ListByAdult returns every child link for the guardian.
func (r *Repository) ListByAdult(ctx context.Context, adultID string) ([]types.ChildLink, error) {
	if adultID == "" {
		return nil, nil
	}
	rows, _, err := r.links.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("adult_id = ?", adultID).OrderExpr("linked_at ASC")
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.ChildLink, 0, len(rows))
	for _, row := range rows {
		out = append(out, toLink(row))
	}
	return out, nil
}

// ListChildren joins the guardian's links with the children's profiles.
// Links pointing at missing profiles are kept with a nil profile so callers
// can surface dangling links instead of hiding them.
func (r *Repository) ListChildren(ctx context.Context, adultID string) ([]types.ChildSummary, error) {
	links, err := r.ListByAdult(ctx, adultID)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []types.ChildSummary{}, nil
	}
	childIDs := make([]string, 0, len(links))
	for _, link := range links {
		if link.ChildID != "" {
			childIDs = append(childIDs, link.ChildID)
		}
	}
	profiles, err := r.batchGetUsers(ctx, childIDs)
	if err != nil {
		return nil, err
	}
	out := make([]types.ChildSummary, 0, len(links))
	for _, link := range links {
		out = append(out, types.ChildSummary{
			ChildID: link.ChildID,
			Link:    link,
			Profile: profiles[link.ChildID],
		})
	}
	return out, nil
}

// CreateUser inserts an identity row. Production deployments read rows owned
// by the identity system; this helper exists for seeds and admin tooling.
func (r *Repository) CreateUser(ctx context.Context, rec *UserRecord) (*types.User, error) {
	if rec == nil || strings.TrimSpace(rec.UserID) == "" {
		return nil, types.ErrUserIDRequired
	}
	if rec.ID == uuid.Nil {
		rec.ID = r.idGen.UUID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.clock.Now()
	}
	created, err := r.users.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	return toUser(created), nil
}

// UpsertLink records a guardian/child relationship. Exposed for hosts and
// seed tooling; the core commands never create links.
func (r *Repository) UpsertLink(ctx context.Context, adultID, childID string) (*types.ChildLink, error) {
	if adultID == "" || childID == "" {
		return nil, types.ErrUserIDRequired
	}
	existing, err := r.GetLink(ctx, adultID, childID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	rec := &ChildLinkRecord{
		ID:       r.idGen.UUID(),
		AdultID:  adultID,
		ChildID:  childID,
		LinkedAt: r.clock.Now(),
	}
	created, err := r.links.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	link := toLink(created)
	return &link, nil
}

func (r *Repository) batchGetUsers(ctx context.Context, userIDs []string) (map[string]*types.User, error) {
	if len(userIDs) == 0 {
		return map[string]*types.User{}, nil
	}
	rows, _, err := r.users.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id IN (?)", bun.In(userIDs))
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]*types.User, len(rows))
	for _, row := range rows {
		out[row.UserID] = toUser(row)
	}
	return out, nil
}

func toUser(rec *UserRecord) *types.User {
	if rec == nil {
		return nil
	}
	return &types.User{
		ID:          rec.UserID,
		Role:        types.ParseRole(rec.Role),
		BirthDate:   rec.BirthDate,
		Country:     rec.Country,
		DisplayName: rec.DisplayName,
		Email:       rec.Email,
		CreatedAt:   rec.CreatedAt,
	}
}

func toLink(rec *ChildLinkRecord) types.ChildLink {
	if rec == nil {
		return types.ChildLink{}
	}
	return types.ChildLink{
		AdultID:  rec.AdultID,
		ChildID:  rec.ChildID,
		LinkedAt: rec.LinkedAt,
	}
}
