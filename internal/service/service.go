// Package service holds the application's use cases. Services validate input,
// pick the store operations to run and keep cached views fresh; they never
// return raw store errors.
package service

import (
	"context"
	"log/slog"

	"socially/internal/middleware"
	"socially/internal/models"
	"socially/internal/observability"
	"socially/internal/repository"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Page selects a window of a newest-first listing.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// isFirstPage reports whether p is the default first page, the only window
// served from the view cache.
func (p Page) isFirstPage() bool {
	p = p.normalize()
	return p.Offset == 0 && p.Limit == DefaultPageSize
}

// EventPublisher delivers committed notifications to connected clients.
type EventPublisher interface {
	PublishNotification(ctx context.Context, n *models.Notification) error
}

// engagementPlan is the single place deciding whether an engagement notifies
// someone: never when the actor is the recipient.
func engagementPlan(e models.Engagement, recipientID string) repository.EngagementPlan {
	if e.Actor() == recipientID {
		return repository.EngagementOnly{Engagement: e}
	}
	return repository.EngagementWithNotification{Engagement: e, RecipientID: recipientID}
}

// announce counts a committed notification and pushes it to the recipient.
// Delivery is best effort; the notification row is already durable.
func announce(ctx context.Context, events EventPublisher, n *models.Notification) {
	if n == nil {
		return
	}
	observability.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	if events == nil {
		return
	}
	if err := events.PublishNotification(context.WithoutCancel(ctx), n); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish notification",
			slog.String("notification_id", n.ID),
			slog.String("recipient_id", n.UserID),
			slog.String("error", err.Error()),
		)
	}
}

func requireUser(userID string) error {
	if userID == "" {
		return models.NewUnauthenticatedError("Authentication required")
	}
	return nil
}

func recordEngagement(kind string, err error) {
	observability.EngagementsTotal.WithLabelValues(kind, observability.OutcomeOf(err)).Inc()
}
