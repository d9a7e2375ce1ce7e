package versions

import (
	"context"
	"errors"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-prefs/pkg/types"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 200

	// versionKeyLayout keeps lexical order chronological within a key prefix.
	versionKeyLayout = "2006-01-02T15:04:05.000Z07:00"
)

// FormatVersionKey builds the "<key>#<timestamp>" audit identifier.
func FormatVersionKey(preferenceKey string, ts time.Time) string {
	return preferenceKey + "#" + ts.UTC().Format(versionKeyLayout)
}

// RepositoryConfig wires the Bun-backed audit repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type versionStore interface {
	repository.Repository[*Record]
}

// Repository persists preference versions and serves the paginated feed.
type Repository struct {
	versionStore
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs the default audit repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("versions: db or repository required")
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
		versionStore: repo,
		clock:        clock,
		idGen:        idGen,
	}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.AuditStore               = (*Repository)(nil)
)

// Append writes one audit record. When the version key is empty it is derived
// from the preference key and the record timestamp (or the clock).
func (r *Repository) Append(ctx context.Context, version types.PreferenceVersion) error {
	userID := strings.TrimSpace(version.UserID)
	key := strings.TrimSpace(version.PreferenceKey)
	if userID == "" {
		return types.ErrUserIDRequired
	}
	if key == "" {
		return errors.New("versions: preference key required")
	}
	ts := version.Timestamp
	if ts.IsZero() {
		ts = r.clock.Now()
	}
	versionKey := strings.TrimSpace(version.VersionKey)
	if versionKey == "" {
		versionKey = FormatVersionKey(key, ts)
	}
	_, err := r.Create(ctx, &Record{
		ID:            r.idGen.UUID(),
		UserID:        userID,
		VersionKey:    versionKey,
		PreferenceKey: key,
		Action:        string(version.Action),
		OldValue:      optionalValue(version.OldValue),
		NewValue:      optionalValue(version.NewValue),
		CreatedAt:     ts,
	})
	return err
}

// GetVersion fetches one audit record by version key. Missing records yield
// (nil, nil).
func (r *Repository) GetVersion(ctx context.Context, userID, versionKey string) (*types.PreferenceVersion, error) {
	userID = strings.TrimSpace(userID)
	versionKey = strings.TrimSpace(versionKey)
	if userID == "" || versionKey == "" {
		return nil, nil
	}
	rows, _, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).
			Where("version_key = ?", versionKey).
			Limit(1)
	})
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	version := toDomain(rows[0])
	return &version, nil
}

// ListVersions returns a page of the audit feed, newest first. The page token
// is opaque; an empty NextToken marks the final page.
func (r *Repository) ListVersions(ctx context.Context, filter types.VersionFilter) (types.VersionPage, error) {
	userID := strings.TrimSpace(filter.UserID)
	if userID == "" {
		return types.VersionPage{}, types.ErrUserIDRequired
	}
	limit := clampLimit(filter.Limit)
	cursor, err := DecodeCursor(filter.PageToken)
	if err != nil {
		return types.VersionPage{}, errors.New("versions: invalid page token")
	}

	rows, _, err := r.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("user_id = ?", userID)
		if key := strings.TrimSpace(filter.PreferenceKey); key != "" {
			q = q.Where("version_key LIKE ?", key+"#%")
		}
		// Fetch one extra row to detect whether a next page exists.
		return ApplyCursorPagination(q, cursor, limit+1)
	})
	if err != nil {
		return types.VersionPage{}, err
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	items := make([]types.PreferenceVersion, 0, len(rows))
	for _, row := range rows {
		items = append(items, toDomain(row))
	}

	page := types.VersionPage{Items: items}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		token, err := EncodeCursor(VersionCursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return types.VersionPage{}, err
		}
		page.NextToken = token
	}
	return page, nil
}

// clampLimit treats zero as "unset" and clamps explicit values into [1, max].
func clampLimit(limit int) int {
	if limit == 0 {
		return defaultFeedLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > maxFeedLimit {
		return maxFeedLimit
	}
	return limit
}

func optionalValue(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func toDomain(rec *Record) types.PreferenceVersion {
	if rec == nil {
		return types.PreferenceVersion{}
	}
	version := types.PreferenceVersion{
		UserID:        rec.UserID,
		VersionKey:    rec.VersionKey,
		PreferenceKey: rec.PreferenceKey,
		Action:        types.VersionAction(rec.Action),
		Timestamp:     rec.CreatedAt,
	}
	if rec.OldValue != nil {
		version.OldValue = *rec.OldValue
	}
	if rec.NewValue != nil {
		version.NewValue = *rec.NewValue
	}
	return version
}
