// Package crudguard turns go-crud operations into access guard enforcement
// calls so HTTP controllers keep the same authorization semantics as the
// command layer.
package crudguard

import (
	"fmt"

	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-prefs/access"
	"github.com/goliatone/go-prefs/pkg/authctx"
	"github.com/goliatone/go-prefs/pkg/types"
)

const (
	textCodeEnforcementFail = "ACCESS_ENFORCEMENT_FAILED"
	textCodeMissingPolicy   = "ACCESS_POLICY_MISSING"
	textCodeMissingContext  = "CONTEXT_MISSING"
)

// Config drives Adapter construction.
type Config struct {
	Guard          access.Guard
	Logger         types.Logger
	PolicyMap      map[crud.CrudOperation]access.Action
	FallbackAction access.Action
}

// Adapter maps go-crud operations onto access guard actions.
type Adapter struct {
	guard          access.Guard
	logger         types.Logger
	policyMap      map[crud.CrudOperation]access.Action
	fallbackAction access.Action
}

// GuardInput captures per-request parameters supplied by transports.
type GuardInput struct {
	Context   crud.Context
	Operation crud.CrudOperation
	TargetID  string
	Bypass    *BypassConfig
}

// GuardResult reports the resolved actor metadata returned by the adapter.
type GuardResult struct {
	Actor        types.ActorRef
	Operation    crud.CrudOperation
	Bypassed     bool
	BypassReason string
}

// BypassConfig explicitly allows guard skips for whitelisted routes (e.g.
// schema exports). It must never be enabled by default.
type BypassConfig struct {
	Enabled bool
	Reason  string
}

// NewAdapter constructs a Guard adapter and validates the supplied config.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Guard == nil {
		return nil, goerrors.New("go-prefs: access guard is required", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal).
			WithTextCode(textCodeEnforcementFail)
	}
	if len(cfg.PolicyMap) == 0 && cfg.FallbackAction == "" {
		return nil, goerrors.New("go-prefs: policy map or fallback action must be provided", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal).
			WithTextCode(textCodeMissingPolicy)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}

	return &Adapter{
		guard:          access.Ensure(cfg.Guard),
		logger:         logger,
		policyMap:      clonePolicyMap(cfg.PolicyMap),
		fallbackAction: cfg.FallbackAction,
	}, nil
}

// Enforce resolves the actor, optionally bypasses, and finally enforces the
// access guard with the mapped action.
func (a *Adapter) Enforce(in GuardInput) (GuardResult, error) {
	if in.Context == nil {
		return GuardResult{}, goerrors.New("go-prefs: crudguard requires a context", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal).
			WithTextCode(textCodeMissingContext)
	}

	ctx := in.Context.UserContext()
	actorRef, _, err := authctx.ResolveActor(ctx)
	if err != nil {
		return GuardResult{}, err
	}

	if in.Bypass != nil && in.Bypass.Enabled {
		a.logger.Info("crudguard: bypassing guard enforcement", "operation", string(in.Operation), "reason", in.Bypass.Reason)
		return GuardResult{
			Actor:        actorRef,
			Operation:    in.Operation,
			Bypassed:     true,
			BypassReason: in.Bypass.Reason,
		}, nil
	}

	action, err := a.actionForOperation(in.Operation)
	if err != nil {
		return GuardResult{}, err
	}

	if err := a.guard.Enforce(ctx, actorRef, action, in.TargetID); err != nil {
		return GuardResult{}, err
	}

	return GuardResult{
		Actor:     actorRef,
		Operation: in.Operation,
	}, nil
}

func (a *Adapter) actionForOperation(op crud.CrudOperation) (access.Action, error) {
	if act, ok := a.policyMap[op]; ok && act != "" {
		return act, nil
	}
	if a.fallbackAction != "" {
		return a.fallbackAction, nil
	}
	return "", goerrors.New(fmt.Sprintf("go-prefs: no access action configured for %s", op), goerrors.CategoryInternal).
		WithCode(goerrors.CodeInternal).
		WithTextCode(textCodeMissingPolicy)
}
