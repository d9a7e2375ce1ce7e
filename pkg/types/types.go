package types

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents the platform account classification.
type Role string

const (
	RoleAdult Role = "adult"
	RoleChild Role = "child"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a stored role string. Unknown or empty values map to
// the empty role so callers can fall through permissive branches.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "adult":
		return RoleAdult
	case "child":
		return RoleChild
	case "admin":
		return RoleAdmin
	default:
		return Role("")
	}
}

// User mirrors the identity record owned by the external profile system. It is
// read-only from this module's perspective.
type User struct {
	ID          string
	Role        Role
	BirthDate   string
	Country     string
	DisplayName string
	Email       string
	CreatedAt   time.Time
}

// UserContext is the ephemeral resolution context derived per request. Age is
// nil when the birth date is absent or unparsable.
type UserContext struct {
	User    User
	Age     *int
	Country string
	IsChild bool
}

// ManagedSchema is an administratively curated policy entry for a preference
// key. ChildOverride uses the empty string for "absent"; the sentinel value
// "locked" (case-insensitive) denies child writes entirely.
type ManagedSchema struct {
	PreferenceKey    string
	Scope            string
	BaseDefault      any
	ChildOverride    string
	MinAge           *int
	MaxAge           *int
	CountryOverrides map[string]any
}

// ChildLocked is the ChildOverride sentinel that denies child writes.
const ChildLocked = "locked"

// ChildLocked reports whether the schema locks the preference for children.
func (s ManagedSchema) ChildLocked() bool {
	return strings.EqualFold(strings.TrimSpace(s.ChildOverride), ChildLocked)
}

// AgeThreshold maps a region code to the child/adult age cutoff. The region
// code "DEFAULT" supplies the global fallback.
type AgeThreshold struct {
	RegionCode   string
	AgeThreshold int
}

// DefaultRegionCode keys the fallback age threshold row.
const DefaultRegionCode = "DEFAULT"

// StoredPreference is an explicit user-set value. Absence means "unset,
// defer to the managed default".
type StoredPreference struct {
	UserID        string
	PreferenceKey string
	Value         string
	UpdatedAt     time.Time
}

// VersionAction tags audit records by mutation kind.
type VersionAction string

const (
	VersionActionUpsert VersionAction = "UPSERT"
	VersionActionDelete VersionAction = "DELETE"
	VersionActionRevert VersionAction = "REVERT"
)

// PreferenceVersion is an append-only audit record. VersionKey is
// "<preferenceKey>#<RFC3339 millisecond timestamp>" so lexical order is
// chronological within a key prefix. Old/new values are tri-state at the
// storage boundary: empty values are stored as absent, never as "".
type PreferenceVersion struct {
	UserID        string
	VersionKey    string
	PreferenceKey string
	Action        VersionAction
	OldValue      string
	NewValue      string
	Timestamp     time.Time
}

// Source identifies the provenance of a resolved preference value.
type Source string

const (
	SourceUser            Source = "user"
	SourceBaseDefault     Source = "baseDefault"
	SourceChildOverride   Source = "childOverride"
	SourceCountryOverride Source = "countryOverride"
	SourceAgeRestriction  Source = "ageRestriction"
)

// ResolvedPreference is the effective view computed fresh on every read.
type ResolvedPreference struct {
	PreferenceKey string
	Value         any
	Source        Source
	Resolved      bool
	IsManaged     bool
	IsSet         bool
}

// ChildLink records that an adult account manages a child account.
type ChildLink struct {
	AdultID  string
	ChildID  string
	LinkedAt time.Time
}

// ChildSummary pairs a link with the child's profile for guardian listings.
type ChildSummary struct {
	ChildID string
	Link    ChildLink
	Profile *User
}

// UserStore exposes read access to identity records. A missing user yields
// (nil, nil) so resolution can fall through to unrestricted defaults.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*User, error)
}

// SchemaStore exposes the managed preference schema set.
type SchemaStore interface {
	ScanAll(ctx context.Context) ([]ManagedSchema, error)
	QueryByKey(ctx context.Context, preferenceKey string) (*ManagedSchema, error)
}

// AgeThresholdStore exposes point lookups of age cutoffs. A missing region
// yields (nil, nil); fallback to DEFAULT is the resolver's concern.
type AgeThresholdStore interface {
	GetThreshold(ctx context.Context, regionCode string) (*AgeThreshold, error)
}

// PreferenceStore persists explicit user-set values at (user, key)
// granularity. Writes are atomic per key; there are no multi-key
// transactions.
type PreferenceStore interface {
	GetPreference(ctx context.Context, userID, preferenceKey string) (*StoredPreference, error)
	PutPreference(ctx context.Context, pref StoredPreference) (*StoredPreference, error)
	DeletePreference(ctx context.Context, userID, preferenceKey string) error
	ListByUser(ctx context.Context, userID string) ([]StoredPreference, error)
}

// VersionFilter narrows audit feed queries. Limit is clamped to [1, 200]
// with a default of 50 by implementations.
type VersionFilter struct {
	UserID        string
	PreferenceKey string
	Limit         int
	PageToken     string
}

// VersionPage is one page of the audit feed, newest first.
type VersionPage struct {
	Items     []PreferenceVersion
	NextToken string
}

// AuditStore appends and queries preference version records. Append is
// best-effort relative to the mutation it describes: the design tolerates a
// successful write whose audit append fails.
type AuditStore interface {
	Append(ctx context.Context, version PreferenceVersion) error
	GetVersion(ctx context.Context, userID, versionKey string) (*PreferenceVersion, error)
	ListVersions(ctx context.Context, filter VersionFilter) (VersionPage, error)
}

// ChildLinkStore exposes guardian/child relationships.
type ChildLinkStore interface {
	GetLink(ctx context.Context, adultID, childID string) (*ChildLink, error)
	ListByAdult(ctx context.Context, adultID string) ([]ChildLink, error)
}

// PreferenceEvent signals preference mutations so downstream systems can
// invalidate caches or push notifications.
type PreferenceEvent struct {
	UserID     string
	Key        string
	Action     string
	ActorID    string
	OccurredAt time.Time
}

// Hooks groups optional callbacks invoked after key workflows complete.
type Hooks struct {
	AfterPreferenceChange func(context.Context, PreferenceEvent)
}

// Clock abstracts time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID creation.
type IDGenerator interface {
	UUID() uuid.UUID
}

// Logger captures basic logging hooks used by the service.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
}

// SystemClock defers to time.Now for production usage.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator produces UUIDv4 identifiers.
type UUIDGenerator struct{}

// UUID returns a randomly generated UUID.
func (UUIDGenerator) UUID() uuid.UUID { return uuid.New() }

// NopLogger discards all log lines.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, error, ...any) {}

var (
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = errors.New("go-prefs: actor reference required")
	// ErrUserIDRequired indicates a user identifier was omitted.
	ErrUserIDRequired = errors.New("go-prefs: user id required")
	// ErrServiceNotReady indicates the service has not been properly configured.
	ErrServiceNotReady = errors.New("go-prefs: service not ready")
	// ErrMissingUserStore occurs when no user store was supplied.
	ErrMissingUserStore = errors.New("go-prefs: missing user store")
	// ErrMissingSchemaStore occurs when no managed schema store was supplied.
	ErrMissingSchemaStore = errors.New("go-prefs: missing schema store")
	// ErrMissingThresholdStore occurs when no age threshold store was supplied.
	ErrMissingThresholdStore = errors.New("go-prefs: missing age threshold store")
	// ErrMissingPreferenceStore occurs when commands or queries lack preference storage.
	ErrMissingPreferenceStore = errors.New("go-prefs: missing preference store")
	// ErrMissingAuditStore occurs when no audit store was supplied.
	ErrMissingAuditStore = errors.New("go-prefs: missing audit store")
	// ErrMissingChildLinkStore occurs when guardian flows lack link storage.
	ErrMissingChildLinkStore = errors.New("go-prefs: missing child link store")
	// ErrMissingContextBuilder occurs when resolution lacks a context builder.
	ErrMissingContextBuilder = errors.New("go-prefs: missing context builder")
	// ErrMissingDefaultsResolver occurs when resolution lacks a defaults resolver.
	ErrMissingDefaultsResolver = errors.New("go-prefs: missing defaults resolver")
)
