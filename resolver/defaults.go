package resolver

import (
	"context"
	"encoding/json"
	"math"

	"github.com/goliatone/go-prefs/pkg/types"
)

// DefaultsResolverConfig wires dependencies for the managed defaults resolver.
type DefaultsResolverConfig struct {
	Schemas types.SchemaStore
}

// DefaultsResolver computes the effective managed default and its provenance
// for every schema entry, given a user context.
type DefaultsResolver struct {
	schemas types.SchemaStore
}

// NewDefaultsResolver constructs the resolver.
func NewDefaultsResolver(cfg DefaultsResolverConfig) (*DefaultsResolver, error) {
	if cfg.Schemas == nil {
		return nil, types.ErrMissingSchemaStore
	}
	return &DefaultsResolver{schemas: cfg.Schemas}, nil
}

// ResolveManagedDefaults scans the full schema set and resolves one default
// per preference key. The first entry seen per key wins; entries whose final
// value resolves to nothing are omitted from the result entirely.
func (r *DefaultsResolver) ResolveManagedDefaults(ctx context.Context, userCtx types.UserContext) (map[string]types.ResolvedPreference, error) {
	entries, err := r.schemas.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	resolved := make(map[string]types.ResolvedPreference, len(entries))
	for _, entry := range entries {
		if entry.PreferenceKey == "" {
			continue
		}
		if _, seen := resolved[entry.PreferenceKey]; seen {
			continue
		}
		if pref, ok := ResolveSingleDefault(entry, userCtx); ok {
			resolved[entry.PreferenceKey] = pref
		}
	}
	return resolved, nil
}

// ResolveSingleDefault applies the override pipeline for one schema entry in
// fixed order: base default, child override, country override, then age
// gating. The country override runs unconditionally after the child step and
// may replace a child override. Age restrictions null the value out, which
// removes the entry from the defaults view.
func ResolveSingleDefault(schema types.ManagedSchema, userCtx types.UserContext) (types.ResolvedPreference, bool) {
	var value any = schema.BaseDefault
	source := types.SourceBaseDefault

	if userCtx.IsChild && schema.ChildOverride != "" {
		value = schema.ChildOverride
		source = types.SourceChildOverride
	}

	if userCtx.Country != "" {
		if override, ok := schema.CountryOverrides[userCtx.Country]; ok {
			value = override
			source = types.SourceCountryOverride
		}
	}

	if userCtx.Age != nil {
		if schema.MinAge != nil && *userCtx.Age < *schema.MinAge {
			value = nil
			source = types.SourceAgeRestriction
		}
		// The max-age check runs after and may overwrite the min-age result.
		if schema.MaxAge != nil && *userCtx.Age > *schema.MaxAge {
			value = nil
			source = types.SourceAgeRestriction
		}
	}

	if value == nil {
		return types.ResolvedPreference{}, false
	}

	return types.ResolvedPreference{
		PreferenceKey: schema.PreferenceKey,
		Value:         NormalizeValue(value),
		Source:        source,
		Resolved:      true,
		IsManaged:     true,
		IsSet:         false,
	}, true
}

// NormalizeValue collapses whole-number decimal values to integers and keeps
// fractional values as floating point so raw decimal representations never
// leak to clients.
func NormalizeValue(value any) any {
	switch v := value.(type) {
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int64(v)
		}
		return v
	case float32:
		return NormalizeValue(float64(v))
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return NormalizeValue(f)
		}
		return v.String()
	default:
		return value
	}
}
