package securelink

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-prefs/pkg/types"
)

type fakeManager struct {
	tokens map[string]types.SecureLinkPayload
	genErr error
	valErr error
}

func newFakeManager() *fakeManager {
	return &fakeManager{tokens: map[string]types.SecureLinkPayload{}}
}

func (f *fakeManager) Generate(route string, payloads ...types.SecureLinkPayload) (string, error) {
	if f.genErr != nil {
		return "", f.genErr
	}
	merged := types.SecureLinkPayload{}
	for _, payload := range payloads {
		for k, v := range payload {
			merged[k] = v
		}
	}
	token := fmt.Sprintf("%s:%d", route, len(f.tokens))
	f.tokens[token] = merged
	return token, nil
}

func (f *fakeManager) Validate(token string) (map[string]any, error) {
	if f.valErr != nil {
		return nil, f.valErr
	}
	if payload, ok := f.tokens[token]; ok {
		return payload, nil
	}
	return map[string]any{}, nil
}

func (f *fakeManager) GetAndValidate(fn func(string) string) (types.SecureLinkPayload, error) {
	payload, err := f.Validate(fn("token"))
	if err != nil {
		return nil, err
	}
	return types.SecureLinkPayload(payload), nil
}

func (f *fakeManager) GetExpiration() time.Duration { return time.Hour }

func TestGuardianInviteRoundTrip(t *testing.T) {
	manager := newFakeManager()

	token, err := GenerateGuardianInvite(manager, "guardian.claim", "adult-1", "child-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	invite, err := ValidateGuardianInvite(manager, token)
	require.NoError(t, err)
	require.Equal(t, "adult-1", invite.AdultID)
	require.Equal(t, "child-1", invite.ChildID)
}

func TestGenerateGuardianInviteValidatesInput(t *testing.T) {
	manager := newFakeManager()

	_, err := GenerateGuardianInvite(nil, "guardian.claim", "adult-1", "child-1")
	require.Error(t, err)

	_, err = GenerateGuardianInvite(manager, "guardian.claim", "  ", "child-1")
	require.Error(t, err)

	_, err = GenerateGuardianInvite(manager, "guardian.claim", "adult-1", "")
	require.Error(t, err)
}

func TestValidateGuardianInviteRejectsForeignIntent(t *testing.T) {
	manager := newFakeManager()
	token, err := manager.Generate("password.reset", types.SecureLinkPayload{
		PayloadKeyAdultID: "adult-1",
		PayloadKeyChildID: "child-1",
		PayloadKeyIntent:  "password.reset",
	})
	require.NoError(t, err)

	_, err = ValidateGuardianInvite(manager, token)
	require.Error(t, err)
}

func TestValidateGuardianInviteRejectsIncompletePayload(t *testing.T) {
	manager := newFakeManager()
	token, err := manager.Generate("guardian.claim", types.SecureLinkPayload{
		PayloadKeyAdultID: "adult-1",
		PayloadKeyIntent:  IntentGuardianLink,
	})
	require.NoError(t, err)

	_, err = ValidateGuardianInvite(manager, token)
	require.Error(t, err)
}
