package versions

import (
	"strings"

	"github.com/goliatone/go-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-masker"

	"github.com/goliatone/go-prefs/pkg/types"
)

// VersionAccessPolicy applies role-aware constraints and sanitization to
// audit feeds.
type VersionAccessPolicy interface {
	Apply(actor *auth.ActorContext, role string, filter types.VersionFilter) (types.VersionFilter, error)
	Sanitize(actor *auth.ActorContext, role string, items []types.PreferenceVersion) []types.PreferenceVersion
}

// AccessPolicyOption customizes the default audit access policy.
type AccessPolicyOption func(*DefaultAccessPolicy)

// DefaultAccessPolicy scopes non-admin actors to their own feed and masks
// sensitive values on read.
type DefaultAccessPolicy struct {
	adminRoles []string
	masker     *masker.Masker
	maskValues bool
}

var _ VersionAccessPolicy = (*DefaultAccessPolicy)(nil)

// NewDefaultAccessPolicy returns the default policy implementation.
func NewDefaultAccessPolicy(opts ...AccessPolicyOption) *DefaultAccessPolicy {
	policy := &DefaultAccessPolicy{
		adminRoles: []string{string(types.RoleAdmin)},
		masker:     DefaultMasker(),
		maskValues: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(policy)
		}
	}
	if policy.masker == nil {
		policy.masker = DefaultMasker()
	}
	return policy
}

// WithPolicyAdminRoles overrides the role names treated as administrative.
func WithPolicyAdminRoles(roles ...string) AccessPolicyOption {
	return func(policy *DefaultAccessPolicy) {
		if policy == nil {
			return
		}
		policy.adminRoles = append([]string{}, roles...)
	}
}

// WithPolicyMasker overrides the masker used for sanitization.
func WithPolicyMasker(masker *masker.Masker) AccessPolicyOption {
	return func(policy *DefaultAccessPolicy) {
		if policy == nil {
			return
		}
		policy.masker = masker
	}
}

// WithValueMasking toggles old/new value masking for non-admin roles.
func WithValueMasking(enabled bool) AccessPolicyOption {
	return func(policy *DefaultAccessPolicy) {
		if policy == nil {
			return
		}
		policy.maskValues = enabled
	}
}

// Apply scopes the requested filter. Non-admin actors may only read their own
// feed; an admin may target any user.
func (p *DefaultAccessPolicy) Apply(actor *auth.ActorContext, role string, filter types.VersionFilter) (types.VersionFilter, error) {
	roleName := resolveRoleName(actor, role)
	if p.isAdmin(roleName) {
		return filter, nil
	}
	subject := ""
	if actor != nil {
		subject = strings.TrimSpace(actor.Subject)
	}
	if subject == "" {
		return types.VersionFilter{}, goerrors.New("actor required", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode("VERSIONS_ACTOR_REQUIRED")
	}
	target := strings.TrimSpace(filter.UserID)
	if target != "" && target != subject {
		return types.VersionFilter{}, goerrors.New("cannot read another user's history", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden).
			WithTextCode("VERSIONS_SELF_ONLY")
	}
	filter.UserID = subject
	return filter, nil
}

// Sanitize masks sensitive values for non-admin roles.
func (p *DefaultAccessPolicy) Sanitize(actor *auth.ActorContext, role string, items []types.PreferenceVersion) []types.PreferenceVersion {
	if len(items) == 0 {
		return items
	}
	if !p.maskValues || p.isAdmin(resolveRoleName(actor, role)) {
		return items
	}
	return SanitizeVersions(p.masker, items)
}

func (p *DefaultAccessPolicy) isAdmin(roleName string) bool {
	for _, admin := range p.adminRoles {
		if roleName == normalizeIdentifier(admin) {
			return true
		}
	}
	return false
}

func resolveRoleName(actor *auth.ActorContext, role string) string {
	roleName := normalizeIdentifier(role)
	if roleName != "" {
		return roleName
	}
	if actor == nil {
		return ""
	}
	return normalizeIdentifier(actor.Role)
}

func normalizeIdentifier(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
