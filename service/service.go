// Package service wires storage, resolution, policy, and the command/query
// facades into a single go-prefs entry point.
package service

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"

	"github.com/goliatone/go-prefs/access"
	"github.com/goliatone/go-prefs/command"
	"github.com/goliatone/go-prefs/pkg/types"
	"github.com/goliatone/go-prefs/query"
	"github.com/goliatone/go-prefs/resolver"
	"github.com/goliatone/go-prefs/versions"
)

// Service is the entry point for go-prefs. It wires stores, resolvers, hooks,
// and command/query facades supplied by the host application.
type Service struct {
	cfg      Config
	commands Commands
	queries  Queries
	context  *resolver.ContextBuilder
	defaults *resolver.DefaultsResolver
	guard    access.Guard
}

// Commands exposes the service command handlers.
type Commands struct {
	PreferenceSet    *command.PreferenceSetCommand
	PreferenceDelete *command.PreferenceDeleteCommand
	PreferenceRevert *command.PreferenceRevertCommand
}

// Queries exposes read-model helpers.
type Queries struct {
	Effective *query.EffectivePreferencesQuery
	Defaults  *query.ManagedDefaultsQuery
	Versions  *query.PreferenceVersionsQuery
	Children  *query.LinkedChildrenQuery
}

// Config captures all required dependencies so callers can provide their own
// instances (bun.DB repositories, cached stores, hooks, etc.).
type Config struct {
	Users         types.UserStore
	Schemas       types.SchemaStore
	Thresholds    types.AgeThresholdStore
	Preferences   types.PreferenceStore
	Audit         types.AuditStore
	ChildLinks    types.ChildLinkStore
	Children      query.ChildLister
	AccessGuard   access.Guard
	VersionPolicy versions.VersionAccessPolicy
	Gate          featuregate.FeatureGate
	Hooks         types.Hooks
	Clock         types.Clock
	IDGenerator   types.IDGenerator
	Logger        types.Logger
}

// New constructs a Service from the supplied configuration.
func New(cfg Config) *Service {
	norm := normalizeConfig(cfg)

	guard := norm.AccessGuard
	if guard == nil {
		guard = access.NewGuard(norm.ChildLinks)
	}

	var builder *resolver.ContextBuilder
	if norm.Users != nil && norm.Thresholds != nil {
		b, err := resolver.NewContextBuilder(resolver.ContextBuilderConfig{
			Users:      norm.Users,
			Thresholds: norm.Thresholds,
			Clock:      norm.Clock,
		})
		if err != nil {
			norm.Logger.Error("go-prefs: context builder initialization failed", err)
		} else {
			builder = b
		}
	}

	var defaults *resolver.DefaultsResolver
	if norm.Schemas != nil {
		d, err := resolver.NewDefaultsResolver(resolver.DefaultsResolverConfig{
			Schemas: norm.Schemas,
		})
		if err != nil {
			norm.Logger.Error("go-prefs: defaults resolver initialization failed", err)
		} else {
			defaults = d
		}
	}

	children := norm.Children
	if children == nil {
		if lister, ok := norm.ChildLinks.(query.ChildLister); ok {
			children = lister
		}
	}
	norm.Children = children

	s := &Service{
		cfg:      norm,
		context:  builder,
		defaults: defaults,
		guard:    access.Ensure(guard),
	}
	s.commands = s.buildCommands()
	s.queries = s.buildQueries()
	return s
}

func normalizeConfig(cfg Config) Config {
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = types.UUIDGenerator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	return cfg
}

// Commands returns the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries returns the query facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// Ready reports whether the service has the required dependencies wired in.
func (s *Service) Ready() bool {
	return s != nil &&
		s.cfg.Users != nil &&
		s.cfg.Schemas != nil &&
		s.cfg.Thresholds != nil &&
		s.cfg.Preferences != nil &&
		s.cfg.Audit != nil &&
		s.context != nil &&
		s.defaults != nil
}

// HealthCheck surfaces missing configuration so upstream transports
// (REST/gRPC/jobs) can fail fast.
func (s *Service) HealthCheck(ctx context.Context) error {
	if !s.Ready() {
		return types.ErrServiceNotReady
	}
	if s.cfg.Users == nil {
		return types.ErrMissingUserStore
	}
	if s.cfg.Schemas == nil {
		return types.ErrMissingSchemaStore
	}
	if s.cfg.Thresholds == nil {
		return types.ErrMissingThresholdStore
	}
	if s.cfg.Preferences == nil {
		return types.ErrMissingPreferenceStore
	}
	if s.cfg.Audit == nil {
		return types.ErrMissingAuditStore
	}
	if s.context == nil {
		return types.ErrMissingContextBuilder
	}
	if s.defaults == nil {
		return types.ErrMissingDefaultsResolver
	}
	return nil
}

// AccessGuard exposes the guard instance used internally so transports can
// reuse the same link-store combination for HTTP adapters.
func (s *Service) AccessGuard() access.Guard {
	if s == nil {
		return access.NopGuard()
	}
	return access.Ensure(s.guard)
}

// AuditStore returns the configured audit store so transports can serve raw
// version lookups.
func (s *Service) AuditStore() types.AuditStore {
	if s == nil {
		return nil
	}
	return s.cfg.Audit
}

// ContextBuilder exposes the resolution context builder for transports that
// need policy context outside the command path.
func (s *Service) ContextBuilder() *resolver.ContextBuilder {
	if s == nil {
		return nil
	}
	return s.context
}

func (s *Service) buildCommands() Commands {
	cfg := command.PreferenceCommandConfig{
		Preferences: s.cfg.Preferences,
		Schemas:     s.cfg.Schemas,
		Audit:       s.cfg.Audit,
		Context:     commandContext(s.context),
		Guard:       s.guard,
		Gate:        s.cfg.Gate,
		Hooks:       s.cfg.Hooks,
		Clock:       s.cfg.Clock,
		Logger:      s.cfg.Logger,
	}
	return Commands{
		PreferenceSet:    command.NewPreferenceSetCommand(cfg),
		PreferenceDelete: command.NewPreferenceDeleteCommand(cfg),
		PreferenceRevert: command.NewPreferenceRevertCommand(cfg),
	}
}

func (s *Service) buildQueries() Queries {
	return Queries{
		Effective: query.NewEffectivePreferencesQuery(query.EffectivePreferencesQueryConfig{
			Preferences: s.cfg.Preferences,
			Context:     queryContext(s.context),
			Defaults:    queryDefaults(s.defaults),
			Merge:       resolver.Merge,
			Guard:       s.guard,
		}),
		Defaults: query.NewManagedDefaultsQuery(query.ManagedDefaultsQueryConfig{
			Context:  queryContext(s.context),
			Defaults: queryDefaults(s.defaults),
			Guard:    s.guard,
		}),
		Versions: query.NewPreferenceVersionsQuery(query.PreferenceVersionsQueryConfig{
			Audit:  s.cfg.Audit,
			Guard:  s.guard,
			Policy: s.cfg.VersionPolicy,
		}),
		Children: query.NewLinkedChildrenQuery(query.LinkedChildrenQueryConfig{
			Children: s.cfg.Children,
			Guard:    s.guard,
			Gate:     s.cfg.Gate,
		}),
	}
}

// commandContext keeps a nil *ContextBuilder from becoming a non-nil
// interface value.
func commandContext(b *resolver.ContextBuilder) command.ContextBuilder {
	if b == nil {
		return nil
	}
	return b
}

func queryContext(b *resolver.ContextBuilder) query.ContextBuilder {
	if b == nil {
		return nil
	}
	return b
}

func queryDefaults(d *resolver.DefaultsResolver) query.DefaultsResolver {
	if d == nil {
		return nil
	}
	return d
}
