package models

import "time"

type StreamEventType string

const (
	EventStyleSelected      StreamEventType = "style_selected"
	EventImageUploaded      StreamEventType = "image_uploaded"
	EventTransformStarted   StreamEventType = "transform_started"
	EventTransformCompleted StreamEventType = "transform_completed"
	EventTransformFailed    StreamEventType = "transform_failed"
	EventQuotaUpdated       StreamEventType = "quota_updated"
	EventQuotaExhausted     StreamEventType = "quota_exhausted"
	EventPaymentOpened      StreamEventType = "payment_opened"
	EventPaymentClosed      StreamEventType = "payment_closed"
	EventPaymentCompleted   StreamEventType = "payment_completed"
	EventPaymentFailed      StreamEventType = "payment_failed"
	EventHistoryLoaded      StreamEventType = "history_loaded"
	EventHistoryClosed      StreamEventType = "history_closed"
	EventWorkflowReset      StreamEventType = "workflow_reset"
	EventSessionEnded       StreamEventType = "session_ended"
)

// StreamMessage is one workflow event pushed to the browser. Data carries a
// snapshot of the composed UI state after the transition.
type StreamMessage struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	EventType StreamEventType `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Sequence  int64           `json:"sequence"`
	Data      interface{}     `json:"data,omitempty"`
	Error     *ErrorData      `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StreamSubscription struct {
	ID        string
	SessionID string
	Channel   chan *StreamMessage
	Connected time.Time
	LastSeen  time.Time
}
