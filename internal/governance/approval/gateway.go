// Package approval handles project extension requests: open, approve, reject.
//
// A request is a notification addressed to the reviewer. Deciding it marks
// the request resolved and delivers the response in one transaction. The
// project's dates are not changed by a decision.
package approval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/domain"
	"projectpulse.io/pulse/internal/governance/audit"
	"projectpulse.io/pulse/internal/notification"
	"projectpulse.io/pulse/internal/pkg/logger"
	"projectpulse.io/pulse/internal/repository"
)

// ErrAlreadyResolved is returned when deciding a request twice.
var ErrAlreadyResolved = errors.New("extension request already resolved")

// Store is the persistence the gateway needs.
type Store interface {
	GetProject(ctx context.Context, id string) (domain.Project, error)
	GetNotification(ctx context.Context, id string) (domain.Notification, error)
	ListNotifications(ctx context.Context, f repository.NotificationFilter) ([]domain.Notification, error)
	ResolveExtension(ctx context.Context, requestID string, action domain.ExtensionAction, response domain.Notification) error
}

// Gateway orchestrates extension requests and decisions.
type Gateway struct {
	store       Store
	engine      *notification.Engine
	sender      notification.Sender
	auditLogger *audit.Logger
}

// NewGateway creates a Gateway.
func NewGateway(store Store, engine *notification.Engine, sender notification.Sender, auditLogger *audit.Logger) *Gateway {
	return &Gateway{store: store, engine: engine, sender: sender, auditLogger: auditLogger}
}

// Request opens an extension request for projectID. Several open requests
// for one project are allowed.
func (g *Gateway) Request(ctx context.Context, projectID, reason, requester string) (domain.Notification, error) {
	p, err := g.store.GetProject(ctx, projectID)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("get project %s: %w", projectID, err)
	}

	_, req := g.engine.CreateExtensionRequest(nil, p.ID, p.Name, reason)
	if err := g.sender.Send(ctx, req); err != nil {
		return domain.Notification{}, fmt.Errorf("deliver extension request for project %s: %w", projectID, err)
	}

	_ = g.auditLogger.LogExtension(ctx, "requested", req.ID, p.ID, requester)
	logger.Named("approval").Info("Extension requested",
		zap.String("notification_id", req.ID),
		zap.String("project_id", p.ID),
		zap.String("requester", requester),
	)
	return req, nil
}

// Approve approves an open request.
func (g *Gateway) Approve(ctx context.Context, requestID, reviewer string) (domain.Notification, error) {
	return g.Decide(ctx, requestID, domain.ActionApprove, reviewer)
}

// Reject rejects an open request.
func (g *Gateway) Reject(ctx context.Context, requestID, reviewer string) (domain.Notification, error) {
	return g.Decide(ctx, requestID, domain.ActionReject, reviewer)
}

// Decide resolves requestID with action and returns the response notification.
func (g *Gateway) Decide(ctx context.Context, requestID string, action domain.ExtensionAction, reviewer string) (domain.Notification, error) {
	req, err := g.store.GetNotification(ctx, requestID)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("get extension request %s: %w", requestID, err)
	}
	if req.Resolved() {
		return domain.Notification{}, fmt.Errorf("request %s (%s): %w", requestID, req.ActionTaken, ErrAlreadyResolved)
	}

	_, resp, err := g.engine.ResolveExtension([]domain.Notification{req}, req, action)
	if err != nil {
		return domain.Notification{}, err
	}

	if err := g.store.ResolveExtension(ctx, requestID, action, resp); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.Notification{}, fmt.Errorf("request %s: %w", requestID, ErrAlreadyResolved)
		}
		return domain.Notification{}, fmt.Errorf("resolve extension request %s: %w", requestID, err)
	}

	_ = g.auditLogger.LogExtension(ctx, action.PastTense(), requestID, req.ProjectID, reviewer)
	logger.Named("approval").Info("Extension request decided",
		zap.String("notification_id", requestID),
		zap.String("project_id", req.ProjectID),
		zap.String("action", string(action)),
		zap.String("reviewer", reviewer),
	)
	return resp, nil
}

// ListPending returns open extension requests, newest first.
func (g *Gateway) ListPending(ctx context.Context) ([]domain.Notification, error) {
	all, err := g.store.ListNotifications(ctx, repository.NotificationFilter{})
	if err != nil {
		return nil, err
	}
	pending := make([]domain.Notification, 0, len(all))
	for _, n := range all {
		if n.Type == domain.NotifyExtensionRequest {
			pending = append(pending, n)
		}
	}
	return pending, nil
}
