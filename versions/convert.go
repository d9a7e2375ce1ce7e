package versions

import "github.com/goliatone/go-prefs/pkg/types"

// FromPreferenceVersion converts a domain audit record into the Bun model so
// transports can reuse the conversion without duplicating it.
func FromPreferenceVersion(version types.PreferenceVersion) *Record {
	return &Record{
		UserID:        version.UserID,
		VersionKey:    version.VersionKey,
		PreferenceKey: version.PreferenceKey,
		Action:        string(version.Action),
		OldValue:      optionalValue(version.OldValue),
		NewValue:      optionalValue(version.NewValue),
		CreatedAt:     version.Timestamp,
	}
}

// ToPreferenceVersion converts the Bun model into the domain audit record.
func ToPreferenceVersion(rec *Record) types.PreferenceVersion {
	return toDomain(rec)
}
