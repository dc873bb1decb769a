package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/models"
	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/services"
	"github.com/KK-2k06/AI-Image-Transformation/internal/imageio"
)

// Publisher pushes workflow events toward the browser. A nil publisher is
// allowed; events are then dropped.
type Publisher interface {
	PublishSessionUpdate(ctx context.Context, msg *models.StreamMessage) error
}

const dispatchTimeout = 5 * time.Minute

// Controller owns the composed UI state of one session and sequences the
// image loader, transformation client, payment flow and history manager
// around it. Events are processed to completion under one lock, so no two
// transitions race; network calls run outside the lock and re-enter through
// token-checked completions.
type Controller struct {
	ID   string
	User models.UserSession

	mu    sync.Mutex
	state State

	// Raw upload bytes for the next submission. The displayable copy
	// lives in state.SourceImage.
	sourceFilename string
	sourceBytes    []byte

	// Monotonic request tokens, one per call kind. A completion whose
	// token is no longer current is stale and gets discarded.
	transformSeq uint64
	historySeq   uint64
	paymentSeq   uint64

	quota     *services.QuotaTracker
	transform services.TransformService
	payments  services.PaymentService
	history   services.HistoryService
	publisher Publisher
	logger    *slog.Logger
}

type ControllerDeps struct {
	Quota     *services.QuotaTracker
	Transform services.TransformService
	Payments  services.PaymentService
	History   services.HistoryService
	Publisher Publisher
	Logger    *slog.Logger
}

func NewController(user models.UserSession, deps ControllerDeps) *Controller {
	return &Controller{
		ID:        uuid.New().String(),
		User:      user,
		state:     NewState(deps.Quota.Remaining()),
		quota:     deps.Quota,
		transform: deps.Transform,
		payments:  deps.Payments,
		history:   deps.History,
		publisher: deps.Publisher,
		logger:    deps.Logger,
	}
}

// Snapshot returns a copy of the current state safe to hand out.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	snap := c.state
	if len(c.state.History) > 0 {
		snap.History = make([]models.HistoryRecord, len(c.state.History))
		copy(snap.History, c.state.History)
	}
	return snap
}

// SelectStyle records the chosen style and clears previous work.
func (c *Controller) SelectStyle(style models.StyleOption) State {
	c.mu.Lock()
	c.state = SelectStyle(c.state, style)
	c.sourceFilename = ""
	c.sourceBytes = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(models.EventStyleSelected, snap, nil)
	return snap
}

// LoadImage reads a user-selected file into the session. Non-image files
// and read failures are silently ignored: no state change, no error surface.
func (c *Controller) LoadImage(filename string, r io.Reader) State {
	data, err := io.ReadAll(r)
	if err != nil {
		c.logger.Warn("failed to read uploaded file", "error", err, "session_id", c.ID)
		return c.Snapshot()
	}

	dataURI, err := imageio.Encode(filename, data)
	if err != nil {
		if !errors.Is(err, imageio.ErrNotImage) {
			c.logger.Warn("failed to load uploaded file", "error", err, "session_id", c.ID)
		}
		return c.Snapshot()
	}

	c.mu.Lock()
	if c.state.Style == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	c.state = ImageLoaded(c.state, dataURI)
	c.sourceFilename = filename
	c.sourceBytes = data
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(models.EventImageUploaded, snap, nil)
	return snap
}

// Submit starts one transformation job. With no image or style it is a
// no-op; with a known-zero quota it opens the payment flow without touching
// the backend; while a job is already in flight it is rejected.
func (c *Controller) Submit() State {
	c.mu.Lock()

	if c.state.Phase == PhaseProcessing {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	if c.state.Style == nil || len(c.sourceBytes) == 0 {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}

	if !c.quota.CanSubmit() {
		c.state = QuotaExhausted(c.state)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(models.EventQuotaExhausted, snap, nil)
		c.publish(models.EventPaymentOpened, snap, nil)
		return snap
	}

	c.transformSeq++
	token := c.transformSeq
	req := &services.TransformRequest{
		UserID:         c.User.ID,
		Style:          *c.state.Style,
		SourceFilename: c.sourceFilename,
		SourceImage:    c.sourceBytes,
	}
	c.state = BeginProcessing(c.state)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(models.EventTransformStarted, snap, nil)

	// The request is detached from the caller: navigating away never
	// aborts it, the token check drops a late result instead.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		resp := c.transform.Submit(ctx, req)
		c.completeTransform(token, resp)
	}()

	return snap
}

func (c *Controller) completeTransform(token uint64, resp *services.TransformResponse) {
	c.mu.Lock()

	if token != c.transformSeq || c.state.Phase != PhaseProcessing {
		c.mu.Unlock()
		c.logger.Info("discarding stale transform response",
			"session_id", c.ID, "token", token)
		return
	}

	var event models.StreamEventType
	var errData *models.ErrorData

	switch resp.Status {
	case services.TransformSucceeded:
		c.state = TransformSucceeded(c.state, resp.OutputImage, resp.GenerationsLeft)
		event = models.EventTransformCompleted
	case services.TransformQuotaExhausted:
		c.state = QuotaExhausted(c.state)
		event = models.EventQuotaExhausted
	case services.TransformFailed:
		c.state = TransformFailed(c.state, resp.ErrorMessage)
		event = models.EventTransformFailed
		errData = &models.ErrorData{Code: "transform_failed", Message: resp.ErrorMessage}
	default:
		// Skipped: preconditions vanished between dispatch and call.
		c.state = Reset(c.state)
		event = models.EventWorkflowReset
	}

	c.state = WithQuota(c.state, c.quota.Remaining())
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(event, snap, errData)
	if resp.Status == services.TransformQuotaExhausted {
		c.publish(models.EventPaymentOpened, snap, nil)
	}
}

// OpenPayment shows the payment modal explicitly.
func (c *Controller) OpenPayment() State {
	c.mu.Lock()
	c.state = OpenPayment(c.state)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(models.EventPaymentOpened, snap, nil)
	return snap
}

// DismissPayment closes the modal and wipes the transient form.
func (c *Controller) DismissPayment() State {
	c.mu.Lock()
	c.state = ClosePayment(c.state)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(models.EventPaymentClosed, snap, nil)
	return snap
}

// SetPaymentMethod switches the modal's method, isolating the two field
// sets from each other.
func (c *Controller) SetPaymentMethod(method models.PaymentMethod) State {
	c.mu.Lock()
	c.state = SetPaymentMethod(c.state, method)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	return snap
}

// Pay submits the modal's transaction. Local validation failures surface
// inline without any network call; rejections keep the entered details.
func (c *Controller) Pay(tx *models.PaymentTransaction) State {
	c.mu.Lock()

	if !c.state.PaymentVisible || c.state.ProcessingPayment {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}

	form := PaymentForm{
		Method:     tx.Method,
		UPIID:      tx.UPIID,
		QRProvider: tx.QRProvider,
		Card:       tx.Card,
	}
	c.state = PaymentSubmitted(c.state, form)
	c.paymentSeq++
	token := c.paymentSeq
	snap := c.snapshotLocked()
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		resp := c.payments.Pay(ctx, c.User.ID, tx)
		c.completePayment(token, resp)
	}()

	return snap
}

func (c *Controller) completePayment(token uint64, resp *services.PaymentResponse) {
	c.mu.Lock()

	if token != c.paymentSeq || !c.state.PaymentVisible {
		c.mu.Unlock()
		c.logger.Info("discarding stale payment response",
			"session_id", c.ID, "token", token)
		return
	}

	var event models.StreamEventType
	var errData *models.ErrorData

	switch resp.Status {
	case services.PaymentSucceeded:
		c.state = PaymentSucceeded(c.state, resp.GenerationsLeft)
		c.state = WithQuota(c.state, c.quota.Remaining())
		event = models.EventPaymentCompleted
	default:
		// Invalid and rejected read the same to the modal: message shown,
		// details retained, user may retry.
		c.state = PaymentFailed(c.state, resp.Message)
		event = models.EventPaymentFailed
		errData = &models.ErrorData{Code: string(resp.Status), Message: resp.Message}
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(event, snap, errData)
}

// ShowHistory opens the history view and fetches the record list. Any
// in-progress selection state is cleared; the views are mutually exclusive.
func (c *Controller) ShowHistory() State {
	c.mu.Lock()

	if c.state.HistoryVisible && c.state.LoadingHistory {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}

	c.state = EnterHistory(c.state)
	c.sourceFilename = ""
	c.sourceBytes = nil
	c.historySeq++
	token := c.historySeq
	snap := c.snapshotLocked()
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		records := c.history.Fetch(ctx, c.User.ID)
		c.completeHistory(token, records)
	}()

	return snap
}

// DeleteHistoryRecord removes one record, then always re-fetches so the
// view reflects current server state.
func (c *Controller) DeleteHistoryRecord(historyID int64) State {
	c.mu.Lock()

	if !c.state.HistoryVisible {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}

	c.state.LoadingHistory = true
	c.historySeq++
	token := c.historySeq
	snap := c.snapshotLocked()
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		records := c.history.Delete(ctx, historyID, c.User.ID)
		c.completeHistory(token, records)
	}()

	return snap
}

func (c *Controller) completeHistory(token uint64, records []models.HistoryRecord) {
	c.mu.Lock()

	if token != c.historySeq || !c.state.HistoryVisible {
		c.mu.Unlock()
		c.logger.Info("discarding stale history response",
			"session_id", c.ID, "token", token)
		return
	}

	c.state = HistoryLoaded(c.state, records)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(models.EventHistoryLoaded, snap, nil)
}

// ExitHistory leaves the history view.
func (c *Controller) ExitHistory() State {
	c.mu.Lock()
	c.state = ExitHistory(c.state)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(models.EventHistoryClosed, snap, nil)
	return snap
}

// Reset is the "choose a different style" action.
func (c *Controller) Reset() State {
	c.mu.Lock()
	c.state = Reset(c.state)
	c.sourceFilename = ""
	c.sourceBytes = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(models.EventWorkflowReset, snap, nil)
	return snap
}

// Logout returns to the landing state. The quota belongs to the user, not
// the screen, so the tracker is left alone.
func (c *Controller) Logout() State {
	c.mu.Lock()
	c.state = Logout(c.state)
	c.state = WithQuota(c.state, c.quota.Remaining())
	c.sourceFilename = ""
	c.sourceBytes = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(models.EventSessionEnded, snap, nil)
	return snap
}

// RefreshQuota applies an authoritative quota value fetched at session
// start.
func (c *Controller) RefreshQuota(generationsLeft int) State {
	c.quota.ApplyServerUpdate(generationsLeft)

	c.mu.Lock()
	c.state = WithQuota(c.state, c.quota.Remaining())
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(models.EventQuotaUpdated, snap, nil)
	return snap
}

func (c *Controller) publish(eventType models.StreamEventType, snap State, errData *models.ErrorData) {
	if c.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := &models.StreamMessage{
		SessionID: c.ID,
		EventType: eventType,
		Timestamp: time.Now(),
		Data:      snap,
		Error:     errData,
	}
	if err := c.publisher.PublishSessionUpdate(ctx, msg); err != nil {
		c.logger.Error("failed to publish workflow event",
			"error", err,
			"session_id", c.ID,
			"event_type", eventType)
	}
}
