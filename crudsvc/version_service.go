package crudsvc

import (
	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"

	"github.com/goliatone/go-prefs/crudguard"
	"github.com/goliatone/go-prefs/pkg/types"
	"github.com/goliatone/go-prefs/query"
	"github.com/goliatone/go-prefs/versions"
)

// VersionServiceConfig wires dependencies for the read-only audit feed.
type VersionServiceConfig struct {
	Guard GuardAdapter
	Feed  gocommand.Querier[query.PreferenceVersionsInput, types.VersionPage]
}

// VersionService exposes the preference audit trail as a read-only go-crud
// resource. The trail is append-only; writes go through the command layer.
type VersionService struct {
	guard  GuardAdapter
	feed   gocommand.Querier[query.PreferenceVersionsInput, types.VersionPage]
	logger types.Logger
}

// NewVersionService constructs the adapter.
func NewVersionService(cfg VersionServiceConfig, opts ...ServiceOption) *VersionService {
	options := applyOptions(opts)
	return &VersionService{
		guard:  cfg.Guard,
		feed:   cfg.Feed,
		logger: options.logger,
	}
}

func (s *VersionService) Create(crud.Context, *versions.Record) (*versions.Record, error) {
	return nil, notSupported(crud.OpCreate)
}

func (s *VersionService) CreateBatch(crud.Context, []*versions.Record) ([]*versions.Record, error) {
	return nil, notSupported(crud.OpCreateBatch)
}

func (s *VersionService) Update(crud.Context, *versions.Record) (*versions.Record, error) {
	return nil, notSupported(crud.OpUpdate)
}

func (s *VersionService) UpdateBatch(crud.Context, []*versions.Record) ([]*versions.Record, error) {
	return nil, notSupported(crud.OpUpdateBatch)
}

func (s *VersionService) Delete(crud.Context, *versions.Record) error {
	return notSupported(crud.OpDelete)
}

func (s *VersionService) DeleteBatch(crud.Context, []*versions.Record) error {
	return notSupported(crud.OpDeleteBatch)
}

func (s *VersionService) Index(ctx crud.Context, _ []repository.SelectCriteria) ([]*versions.Record, int, error) {
	if s.feed == nil {
		return nil, 0, goerrors.New("version feed query unavailable", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
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

	page, err := s.feed.Query(ctx.UserContext(), query.PreferenceVersionsInput{
		Filter: types.VersionFilter{
			UserID:        userID,
			PreferenceKey: queryString(ctx, "key"),
			Limit:         queryInt(ctx, "limit", 0),
			PageToken:     queryString(ctx, "page_token"),
		},
		Actor: res.Actor,
	})
	if err != nil {
		return nil, 0, err
	}
	entries := make([]*versions.Record, 0, len(page.Items))
	for _, item := range page.Items {
		entries = append(entries, versions.FromPreferenceVersion(item))
	}
	return entries, len(entries), nil
}

func (s *VersionService) Show(crud.Context, string, []repository.SelectCriteria) (*versions.Record, error) {
	return nil, notSupported(crud.OpRead)
}
