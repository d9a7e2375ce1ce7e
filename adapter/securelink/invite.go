package securelink

import (
	"errors"
	"strings"

	"github.com/goliatone/go-prefs/pkg/types"
)

// Guardian invite payload keys embedded in the signed link.
const (
	PayloadKeyAdultID = "adult_id"
	PayloadKeyChildID = "child_id"
	PayloadKeyIntent  = "intent"

	// IntentGuardianLink marks tokens minted for guardian/child linking.
	IntentGuardianLink = "guardian.link"
)

// GuardianInvite is the decoded payload of a guardian link token.
type GuardianInvite struct {
	AdultID string
	ChildID string
}

// GenerateGuardianInvite mints a signed link an adult can send to claim a
// child account.
func GenerateGuardianInvite(manager types.SecureLinkManager, route, adultID, childID string) (string, error) {
	if manager == nil {
		return "", errors.New("securelink manager required")
	}
	adultID = strings.TrimSpace(adultID)
	childID = strings.TrimSpace(childID)
	if adultID == "" || childID == "" {
		return "", errors.New("guardian invite requires adult and child ids")
	}
	return manager.Generate(route, types.SecureLinkPayload{
		PayloadKeyAdultID: adultID,
		PayloadKeyChildID: childID,
		PayloadKeyIntent:  IntentGuardianLink,
	})
}

// ValidateGuardianInvite checks the token signature and intent, returning the
// decoded invite.
func ValidateGuardianInvite(manager types.SecureLinkManager, token string) (GuardianInvite, error) {
	if manager == nil {
		return GuardianInvite{}, errors.New("securelink manager required")
	}
	payload, err := manager.Validate(token)
	if err != nil {
		return GuardianInvite{}, err
	}
	if intent, _ := payload[PayloadKeyIntent].(string); intent != IntentGuardianLink {
		return GuardianInvite{}, errors.New("token is not a guardian invite")
	}
	invite := GuardianInvite{}
	invite.AdultID, _ = payload[PayloadKeyAdultID].(string)
	invite.ChildID, _ = payload[PayloadKeyChildID].(string)
	if invite.AdultID == "" || invite.ChildID == "" {
		return GuardianInvite{}, errors.New("guardian invite payload incomplete")
	}
	return invite, nil
}
