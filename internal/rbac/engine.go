package rbac

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// PermissionResolver supplies effective permission sets to the engine.
type PermissionResolver interface {
	EffectivePermissions(ctx context.Context, userID int64) (PermissionSet, error)
}

// GrantChecker answers instance-grant lookups for instance-scoped resources.
type GrantChecker interface {
	HasAssetGrant(ctx context.Context, userID int64, assetType string, instanceID uuid.UUID) (bool, error)
}

// DecisionRecorder receives the outcome of every authorization check.
type DecisionRecorder interface {
	RecordDecision(resource, action string, allowed bool)
}

// Engine is the single authorization entry point consulted per request.
// It is stateless; all policy lives in the store behind the resolver.
type Engine struct {
	resolver PermissionResolver
	grants   GrantChecker
	logger   *slog.Logger
	recorder DecisionRecorder
}

// NewEngine constructs the decision engine. recorder may be nil.
func NewEngine(resolver PermissionResolver, grants GrantChecker, logger *slog.Logger, recorder DecisionRecorder) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{resolver: resolver, grants: grants, logger: logger, recorder: recorder}
}

type authorizeRequest struct {
	instanceID  uuid.UUID
	hasInstance bool
}

// AuthorizeOption refines an authorization check.
type AuthorizeOption func(*authorizeRequest)

// WithInstance scopes the check to one concrete asset instance.
func WithInstance(id uuid.UUID) AuthorizeOption {
	return func(req *authorizeRequest) {
		req.instanceID = id
		req.hasInstance = true
	}
}

// Authorize decides whether the actor may perform action on resource.
// Store failures deny (fail closed); denials are final, never retried.
func (e *Engine) Authorize(ctx context.Context, actorID int64, resource Resource, action Action, opts ...AuthorizeOption) Decision {
	var req authorizeRequest
	for _, opt := range opts {
		opt(&req)
	}
	decision := e.decide(ctx, actorID, resource, action, req)
	if e.recorder != nil {
		e.recorder.RecordDecision(string(resource), string(action), decision.Allowed)
	}
	return decision
}

func (e *Engine) decide(ctx context.Context, actorID int64, resource Resource, action Action, req authorizeRequest) Decision {
	perms, err := e.resolver.EffectivePermissions(ctx, actorID)
	if err != nil {
		e.logger.Error("authz resolve permissions",
			slog.Int64("actor", actorID),
			slog.String("resource", string(resource)),
			slog.Any("error", err))
		return Deny(ReasonStoreUnavailable)
	}

	// Role-based permission covers the resource as a whole, including every
	// instance of an instance-scoped resource.
	if perms.Has(resource, action) {
		return Allow()
	}

	if assetType, scoped := resource.AssetType(); scoped && req.hasInstance {
		granted, err := e.grants.HasAssetGrant(ctx, actorID, assetType, req.instanceID)
		if err != nil {
			e.logger.Error("authz instance grant lookup",
				slog.Int64("actor", actorID),
				slog.String("asset_type", assetType),
				slog.Any("error", err))
			return Deny(ReasonStoreUnavailable)
		}
		if granted {
			return Allow()
		}
	}

	return Deny(ReasonInsufficientPermission)
}
