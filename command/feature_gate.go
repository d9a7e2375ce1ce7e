package command

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"
)

const (
	featurePreferencesWrite  = "preferences.write"
	featurePreferencesRevert = "preferences.revert"
)

func featureEnabled(ctx context.Context, gate featuregate.FeatureGate, key, userID string) (bool, error) {
	if gate == nil {
		return true, nil
	}
	if userID == "" {
		return gate.Enabled(ctx, key)
	}
	return gate.Enabled(ctx, key, featuregate.WithScopeSet(featuregate.ScopeSet{
		System: true,
		UserID: userID,
	}))
}
