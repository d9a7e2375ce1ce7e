package settings

import "github.com/goliatone/go-prefs/pkg/types"

// FromStoredPreference converts the domain value into the Bun model so
// transports can reuse the conversion without duplicating it.
func FromStoredPreference(pref types.StoredPreference) *Record {
	return &Record{
		UserID:        pref.UserID,
		PreferenceKey: pref.PreferenceKey,
		Value:         pref.Value,
		UpdatedAt:     pref.UpdatedAt,
	}
}

// ToStoredPreference converts the Bun model into the domain value.
func ToStoredPreference(rec *Record) types.StoredPreference {
	return toDomain(rec)
}
