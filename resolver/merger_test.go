package resolver

import (
	"testing"

	"github.com/goliatone/go-prefs/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestMerge_StoredShadowsDefault(t *testing.T) {
	stored := []types.StoredPreference{
		{UserID: "u1", PreferenceKey: "notifications.email", Value: `false`},
	}
	defaults := map[string]types.ResolvedPreference{
		"notifications.email": {
			PreferenceKey: "notifications.email",
			Value:         true,
			Source:        types.SourceBaseDefault,
			Resolved:      true,
			IsManaged:     true,
		},
		"content.locale": {
			PreferenceKey: "content.locale",
			Value:         "en-US",
			Source:        types.SourceBaseDefault,
			Resolved:      true,
			IsManaged:     true,
		},
	}

	result, err := Merge(stored, defaults, true)
	require.NoError(t, err)
	require.Len(t, result, 2)

	byKey := indexByKey(result)
	email := byKey["notifications.email"]
	require.Equal(t, false, email.Value)
	require.Equal(t, types.SourceUser, email.Source)
	require.True(t, email.IsSet)
	require.True(t, email.IsManaged)

	locale := byKey["content.locale"]
	require.Equal(t, "en-US", locale.Value)
	require.Equal(t, types.SourceBaseDefault, locale.Source)
	require.False(t, locale.IsSet)
	require.True(t, locale.IsManaged)
}

func TestMerge_UnmanagedStoredValue(t *testing.T) {
	stored := []types.StoredPreference{
		{UserID: "u1", PreferenceKey: "custom.theme", Value: `"dark"`},
	}

	result, err := Merge(stored, nil, false)
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, "custom.theme", result[0].PreferenceKey)
	require.Equal(t, "dark", result[0].Value)
	require.Equal(t, types.SourceUser, result[0].Source)
	require.True(t, result[0].IsSet)
	require.False(t, result[0].IsManaged)
}

func TestMerge_DecodesStoredValues(t *testing.T) {
	stored := []types.StoredPreference{
		{UserID: "u1", PreferenceKey: "content.locale", Value: `"fr"`},
		{UserID: "u1", PreferenceKey: "content.limit", Value: `10`},
		{UserID: "u1", PreferenceKey: "content.flags", Value: `{"beta":true}`},
		{UserID: "u1", PreferenceKey: "content.legacy", Value: `not-json`},
	}
	defaults := map[string]types.ResolvedPreference{
		"content.locale": {
			PreferenceKey: "content.locale",
			Value:         "en-US",
			Source:        types.SourceBaseDefault,
			Resolved:      true,
			IsManaged:     true,
		},
	}

	result, err := Merge(stored, defaults, true)
	require.NoError(t, err)

	byKey := indexByKey(result)
	require.Equal(t, "fr", byKey["content.locale"].Value)
	require.Equal(t, float64(10), byKey["content.limit"].Value)
	require.Equal(t, map[string]any{"beta": true}, byKey["content.flags"].Value)
	require.Equal(t, "not-json", byKey["content.legacy"].Value)
}

func TestMerge_EmptyInputsYieldEmptySlice(t *testing.T) {
	result, err := Merge(nil, nil, true)
	require.NoError(t, err)
	require.Empty(t, result)
	require.NotNil(t, result)
}

func TestMerge_SkipsEmptyKeys(t *testing.T) {
	stored := []types.StoredPreference{
		{UserID: "u1", PreferenceKey: "", Value: `"ignored"`},
		{UserID: "u1", PreferenceKey: "a", Value: `1`},
	}

	result, err := Merge(stored, nil, false)
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, "a", result[0].PreferenceKey)
}

func TestMerge_DefaultsOnly(t *testing.T) {
	defaults := map[string]types.ResolvedPreference{
		"a": {PreferenceKey: "a", Value: 1, Source: types.SourceBaseDefault, Resolved: true, IsManaged: true},
	}
	result, err := Merge(nil, defaults, true)
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, defaults["a"], result[0])
}

func indexByKey(items []types.ResolvedPreference) map[string]types.ResolvedPreference {
	out := make(map[string]types.ResolvedPreference, len(items))
	for _, item := range items {
		out[item.PreferenceKey] = item
	}
	return out
}
