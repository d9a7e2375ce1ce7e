package versions

import (
	"strings"
	"sync"

	"github.com/goliatone/go-masker"

	"github.com/goliatone/go-prefs/pkg/types"
)

// SanitizerConfig controls the masker used for audit feed sanitization.
type SanitizerConfig struct {
	Masker *masker.Masker
}

var defaultMaskerOnce sync.Once

// DefaultMasker returns a configured masker instance with the default denylist.
func DefaultMasker() *masker.Masker {
	defaultMaskerOnce.Do(func() {
		if masker.Default == nil {
			return
		}
		registerDefaultMaskFields(masker.Default)
	})
	return masker.Default
}

// SanitizeVersion masks the old/new values of an audit record when the
// preference key's leaf segment matches the masker denylist.
func SanitizeVersion(mask *masker.Masker, version types.PreferenceVersion) types.PreferenceVersion {
	if version.OldValue == "" && version.NewValue == "" {
		return version
	}
	if mask == nil {
		mask = DefaultMasker()
	}
	if mask == nil {
		return version
	}
	field := leafSegment(version.PreferenceKey)
	version.OldValue = maskValue(mask, field, version.OldValue)
	version.NewValue = maskValue(mask, field, version.NewValue)
	return version
}

// SanitizeVersions masks old/new values for every record in the slice.
func SanitizeVersions(mask *masker.Masker, items []types.PreferenceVersion) []types.PreferenceVersion {
	if len(items) == 0 {
		return items
	}
	out := make([]types.PreferenceVersion, 0, len(items))
	for _, item := range items {
		out = append(out, SanitizeVersion(mask, item))
	}
	return out
}

func maskValue(mask *masker.Masker, field, value string) string {
	if value == "" {
		return value
	}
	masked, err := mask.Mask(map[string]any{field: value})
	if err != nil {
		return ""
	}
	payload, ok := masked.(map[string]any)
	if !ok {
		return ""
	}
	if text, ok := payload[field].(string); ok {
		return text
	}
	return value
}

func leafSegment(preferenceKey string) string {
	if idx := strings.LastIndex(preferenceKey, "."); idx >= 0 {
		return preferenceKey[idx+1:]
	}
	return preferenceKey
}

func registerDefaultMaskFields(mask *masker.Masker) {
	if mask == nil {
		return
	}
	mask.RegisterMaskField("secret", "filled4")
	mask.RegisterMaskField("token", "filled4")
	mask.RegisterMaskField("password", "filled4")
}
