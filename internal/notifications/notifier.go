// Package notifications delivers committed notifications to connected
// websocket clients through Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"strings"

	"socially/internal/middleware"
	"socially/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix  = "notifications:user:"
	userChannelPattern = userChannelPrefix + "*"
)

// EventNotification is the event type pushed when a notification is created.
const EventNotification = "notification"

// Event is the JSON frame written to websocket clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Notifier publishes events on per-user Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a raw payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID string, payload []byte) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishNotification pushes n to its recipient.
func (n *Notifier) PublishNotification(ctx context.Context, notification *models.Notification) error {
	payload, err := json.Marshal(Event{Type: EventNotification, Payload: notification})
	if err != nil {
		return err
	}
	return n.PublishUser(ctx, notification.UserID, payload)
}

// StartPatternSubscriber subscribes to every user channel and calls onMessage
// for each message until ctx is done.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPattern)
	// Wait for the subscription to be confirmed so no early publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

func userFromChannel(channel string) (string, bool) {
	userID, ok := strings.CutPrefix(channel, userChannelPrefix)
	return userID, ok && userID != ""
}
