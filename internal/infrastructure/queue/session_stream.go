package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/models"
)

// SessionStream relays workflow events through Redis so every gateway
// instance and websocket connection sees the same ordered feed for a
// session. Events live in a capped Redis stream; Incr gives them a
// monotonic sequence per session.
type SessionStream struct {
	client        *redis.Client
	logger        *slog.Logger
	subscriptions map[string]*models.StreamSubscription
	mutex         sync.RWMutex
}

func NewSessionStream(redisClient *redis.Client, logger *slog.Logger) *SessionStream {
	return &SessionStream{
		client:        redisClient,
		logger:        logger,
		subscriptions: make(map[string]*models.StreamSubscription),
	}
}

func sessionStreamKey(sessionID string) string {
	return fmt.Sprintf("stream:session:%s", sessionID)
}

// PublishSessionUpdate appends one workflow event to the session's stream.
func (q *SessionStream) PublishSessionUpdate(ctx context.Context, msg *models.StreamMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	seqKey := fmt.Sprintf("session_seq:%s", msg.SessionID)
	seq, err := q.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return fmt.Errorf("failed to increment sequence: %w", err)
	}
	msg.Sequence = seq

	msgData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal stream message: %w", err)
	}

	_, err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: sessionStreamKey(msg.SessionID),
		ID:     "*",
		Values: map[string]interface{}{
			"event_type": string(msg.EventType),
			"sequence":   msg.Sequence,
			"timestamp":  msg.Timestamp.Unix(),
			"data":       string(msgData),
		},
		MaxLen: 500,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to append to session stream: %w", err)
	}

	return nil
}

// SubscribeToSession tails a session's event stream. The returned
// subscription's channel closes when ctx is cancelled.
func (q *SessionStream) SubscribeToSession(ctx context.Context, sessionID string) (*models.StreamSubscription, error) {
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	subscription := &models.StreamSubscription{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Channel:   make(chan *models.StreamMessage, 100),
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	q.mutex.Lock()
	q.subscriptions[subscription.ID] = subscription
	q.mutex.Unlock()

	streamKey := sessionStreamKey(sessionID)
	lastID := "$"

	go func() {
		defer func() {
			close(subscription.Channel)
			q.mutex.Lock()
			delete(q.subscriptions, subscription.ID)
			q.mutex.Unlock()
			q.logger.Info("closed session stream subscription",
				"subscription_id", subscription.ID,
				"session_id", sessionID)
		}()

		backoff := time.Second

		for {
			if ctx.Err() != nil {
				return
			}

			res, err := q.client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{streamKey, lastID},
				Block:   5 * time.Second,
				Count:   100,
			}).Result()

			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if ctx.Err() != nil {
					return
				}

				time.Sleep(backoff)
				if backoff < 5*time.Second {
					backoff *= 2
				}
				continue
			}

			backoff = time.Second

			for _, stream := range res {
				if stream.Stream != streamKey {
					continue
				}
				for _, xmsg := range stream.Messages {
					lastID = xmsg.ID

					raw, ok := xmsg.Values["data"].(string)
					if !ok || raw == "" {
						continue
					}

					var streamMsg models.StreamMessage
					if err := json.Unmarshal([]byte(raw), &streamMsg); err != nil {
						q.logger.Error("failed to unmarshal stream message",
							"error", err,
							"session_id", sessionID)
						continue
					}

					select {
					case subscription.Channel <- &streamMsg:
						subscription.LastSeen = time.Now()
					case <-time.After(5 * time.Second):
						q.logger.Warn("slow subscriber, dropping message",
							"subscription_id", subscription.ID,
							"event_type", streamMsg.EventType)
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return subscription, nil
}

// GetSessionHistory returns up to count recent events, newest first.
func (q *SessionStream) GetSessionHistory(ctx context.Context, sessionID string, count int64) ([]*models.StreamMessage, error) {
	result, err := q.client.XRevRange(ctx, sessionStreamKey(sessionID), "+", "-").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session stream history: %w", err)
	}

	messages := make([]*models.StreamMessage, 0, len(result))
	for i, xMsg := range result {
		if count > 0 && int64(i) >= count {
			break
		}

		if dataField, ok := xMsg.Values["data"].(string); ok {
			var streamMsg models.StreamMessage
			if err := json.Unmarshal([]byte(dataField), &streamMsg); err == nil {
				messages = append(messages, &streamMsg)
			}
		}
	}

	return messages, nil
}

// SubscriptionCount reports the live subscriptions on this instance.
func (q *SessionStream) SubscriptionCount() int {
	q.mutex.RLock()
	defer q.mutex.RUnlock()
	return len(q.subscriptions)
}
