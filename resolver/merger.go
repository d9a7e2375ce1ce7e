package resolver

import (
	"encoding/json"

	opts "github.com/goliatone/go-options"

	"github.com/goliatone/go-prefs/pkg/types"
)

// Merge combines explicitly stored preferences with resolved managed defaults
// into one effective view. Stored values always shadow defaults for the same
// key. When includeDefaults is set, defaults for keys the user has not set are
// added verbatim. Stored values are decoded from their serialized form so user
// and default values share one representation. The returned collection is
// unordered.
func Merge(stored []types.StoredPreference, defaults map[string]types.ResolvedPreference, includeDefaults bool) ([]types.ResolvedPreference, error) {
	userValues := make(map[string]any, len(stored))
	for _, item := range stored {
		if item.PreferenceKey == "" {
			continue
		}
		userValues[item.PreferenceKey] = decodeStoredValue(item.Value)
	}

	layers := make([]opts.Layer[map[string]any], 0, 2)
	if includeDefaults && len(defaults) > 0 {
		payload := make(map[string]any, len(defaults))
		for key, pref := range defaults {
			payload[key] = pref.Value
		}
		scope := opts.NewScope("defaults", opts.ScopePrioritySystem,
			opts.WithScopeLabel("Managed Defaults"))
		layers = append(layers, opts.NewLayer(scope, payload, opts.WithSnapshotID[map[string]any](scope.Name)))
	}
	if len(userValues) > 0 {
		scope := opts.NewScope("user", opts.ScopePriorityUser,
			opts.WithScopeLabel("User Settings"))
		layers = append(layers, opts.NewLayer(scope, userValues, opts.WithSnapshotID[map[string]any](scope.Name)))
	}
	if len(layers) == 0 {
		return []types.ResolvedPreference{}, nil
	}

	stack, err := opts.NewStack(layers...)
	if err != nil {
		return nil, err
	}
	merged, err := stack.Merge()
	if err != nil {
		return nil, err
	}

	result := make([]types.ResolvedPreference, 0, len(merged.Value))
	for key, value := range merged.Value {
		if _, isSet := userValues[key]; isSet {
			_, isManaged := defaults[key]
			result = append(result, types.ResolvedPreference{
				PreferenceKey: key,
				Value:         value,
				Source:        types.SourceUser,
				Resolved:      true,
				IsManaged:     isManaged,
				IsSet:         true,
			})
			continue
		}
		result = append(result, defaults[key])
	}
	return result, nil
}

// decodeStoredValue unpacks the serialized stored form. Rows written before
// serialization was enforced surface verbatim.
func decodeStoredValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	return value
}
