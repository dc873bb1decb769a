package workflow

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/models"
	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/services"
)

type fakeTransform struct {
	mu    sync.Mutex
	calls int
	resp  *services.TransformResponse
	quota *services.QuotaTracker
	block chan struct{}
}

func (f *fakeTransform) Submit(ctx context.Context, req *services.TransformRequest) *services.TransformResponse {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.resp.GenerationsLeft != nil && f.quota != nil {
		f.quota.ApplyServerUpdate(*f.resp.GenerationsLeft)
	}
	return f.resp
}

func (f *fakeTransform) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePayments struct {
	resp  *services.PaymentResponse
	quota *services.QuotaTracker
}

func (f *fakePayments) Pay(ctx context.Context, userID int64, tx *models.PaymentTransaction) *services.PaymentResponse {
	if f.resp.Status == services.PaymentSucceeded && f.resp.GenerationsLeft != nil && f.quota != nil {
		f.quota.ApplyServerUpdate(*f.resp.GenerationsLeft)
	}
	return f.resp
}

type fakeHistory struct {
	records []models.HistoryRecord
}

func (f *fakeHistory) Fetch(ctx context.Context, userID int64) []models.HistoryRecord {
	return f.records
}

func (f *fakeHistory) Delete(ctx context.Context, historyID, userID int64) []models.HistoryRecord {
	kept := make([]models.HistoryRecord, 0, len(f.records))
	for _, r := range f.records {
		if r.ID != historyID {
			kept = append(kept, r)
		}
	}
	f.records = kept
	return kept
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.StreamEventType
}

func (p *recordingPublisher) PublishSessionUpdate(ctx context.Context, msg *models.StreamMessage) error {
	p.mu.Lock()
	p.events = append(p.events, msg.EventType)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) seen(eventType models.StreamEventType) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e == eventType {
			return true
		}
	}
	return false
}

type testEnv struct {
	controller *Controller
	quota      *services.QuotaTracker
	transform  *fakeTransform
	payments   *fakePayments
	history    *fakeHistory
	publisher  *recordingPublisher
}

func newTestEnv(initialQuota int) *testEnv {
	quota := services.NewQuotaTracker(initialQuota)
	transform := &fakeTransform{quota: quota}
	payments := &fakePayments{quota: quota}
	history := &fakeHistory{}
	publisher := &recordingPublisher{}

	controller := NewController(
		models.UserSession{ID: 7, FirstName: "Asha"},
		ControllerDeps{
			Quota:     quota,
			Transform: transform,
			Payments:  payments,
			History:   history,
			Publisher: publisher,
			Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	)

	return &testEnv{
		controller: controller,
		quota:      quota,
		transform:  transform,
		payments:   payments,
		history:    history,
		publisher:  publisher,
	}
}

// pngUpload is a minimal PNG payload the loader accepts.
var pngUpload = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func (e *testEnv) selectAndUpload(t *testing.T) {
	t.Helper()
	e.controller.SelectStyle(models.StyleOption{ID: 3, Title: "Pixar"})
	state := e.controller.LoadImage("photo.png", bytes.NewReader(pngUpload))
	if state.Phase != PhaseUploaded {
		t.Fatalf("Phase = %s after upload, want uploaded", state.Phase)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestControllerSubmitSuccess(t *testing.T) {
	env := newTestEnv(3)
	two := 2
	env.transform.resp = &services.TransformResponse{
		Status:          services.TransformSucceeded,
		OutputImage:     "data:image/png;base64,b3V0",
		GenerationsLeft: &two,
	}
	env.selectAndUpload(t)

	state := env.controller.Submit()
	if state.Phase != PhaseProcessing {
		t.Fatalf("Phase = %s after submit, want processing", state.Phase)
	}

	waitFor(t, func() bool { return env.controller.Snapshot().Phase == PhaseResult })

	final := env.controller.Snapshot()
	if final.OutputImage != "data:image/png;base64,b3V0" {
		t.Errorf("OutputImage = %q, want transformed output", final.OutputImage)
	}
	if final.GenerationsLeft != 2 {
		t.Errorf("GenerationsLeft = %d, want server value 2", final.GenerationsLeft)
	}
	if !env.publisher.seen(models.EventTransformStarted) || !env.publisher.seen(models.EventTransformCompleted) {
		t.Error("transform events not published")
	}
}

func TestControllerSubmitWithExhaustedQuota(t *testing.T) {
	env := newTestEnv(0)
	env.transform.resp = &services.TransformResponse{Status: services.TransformSucceeded}
	env.selectAndUpload(t)

	state := env.controller.Submit()

	if env.transform.callCount() != 0 {
		t.Error("transform dispatched despite zero quota")
	}
	if !state.PaymentVisible {
		t.Error("payment modal not opened")
	}
	if state.Phase == PhaseProcessing {
		t.Error("processing entered with zero quota")
	}
	if !env.publisher.seen(models.EventQuotaExhausted) {
		t.Error("quota_exhausted event not published")
	}
}

func TestControllerRejectsConcurrentSubmissions(t *testing.T) {
	env := newTestEnv(3)
	env.transform.block = make(chan struct{})
	env.transform.resp = &services.TransformResponse{
		Status:      services.TransformSucceeded,
		OutputImage: "data:image/png;base64,b3V0",
	}
	env.selectAndUpload(t)

	env.controller.Submit()
	waitFor(t, func() bool { return env.transform.callCount() == 1 })

	env.controller.Submit()
	if got := env.transform.callCount(); got != 1 {
		t.Errorf("transform called %d times with one in flight, want 1", got)
	}

	close(env.transform.block)
	waitFor(t, func() bool { return env.controller.Snapshot().Phase == PhaseResult })
}

func TestControllerDiscardsStaleTransform(t *testing.T) {
	env := newTestEnv(3)
	env.transform.block = make(chan struct{})
	env.transform.resp = &services.TransformResponse{
		Status:      services.TransformSucceeded,
		OutputImage: "data:image/png;base64,b3V0",
	}
	env.selectAndUpload(t)

	env.controller.Submit()
	waitFor(t, func() bool { return env.transform.callCount() == 1 })

	// The user walks away to the history view while the job is in flight.
	env.controller.ShowHistory()
	close(env.transform.block)

	// The late result must not leak into the history view.
	time.Sleep(50 * time.Millisecond)
	state := env.controller.Snapshot()
	if state.OutputImage != "" {
		t.Errorf("OutputImage = %q after leaving the view, want discarded", state.OutputImage)
	}
	if !state.HistoryVisible {
		t.Error("history view lost")
	}
}

func TestControllerPaymentLifecycle(t *testing.T) {
	env := newTestEnv(0)
	five := 5
	env.payments.resp = &services.PaymentResponse{
		Status:          services.PaymentSucceeded,
		GenerationsLeft: &five,
	}

	env.controller.OpenPayment()
	env.controller.Pay(&models.PaymentTransaction{
		Method: models.PaymentMethodUPI,
		UPIID:  "asha@upi",
	})

	waitFor(t, func() bool { return !env.controller.Snapshot().PaymentVisible })

	state := env.controller.Snapshot()
	if state.GenerationsLeft != 5 {
		t.Errorf("GenerationsLeft = %d after payment, want 5", state.GenerationsLeft)
	}
	if state.Payment.UPIID != "" {
		t.Error("payment form not cleared after success")
	}
	if !env.publisher.seen(models.EventPaymentCompleted) {
		t.Error("payment_completed event not published")
	}
}

func TestControllerPaymentFailureKeepsModal(t *testing.T) {
	env := newTestEnv(0)
	env.payments.resp = &services.PaymentResponse{
		Status:  services.PaymentRejected,
		Message: "Payment declined",
	}

	env.controller.OpenPayment()
	env.controller.Pay(&models.PaymentTransaction{
		Method: models.PaymentMethodUPI,
		UPIID:  "asha@upi",
	})

	waitFor(t, func() bool { return env.controller.Snapshot().PaymentError != "" })

	state := env.controller.Snapshot()
	if !state.PaymentVisible {
		t.Error("modal closed on failure")
	}
	if state.Payment.UPIID != "asha@upi" {
		t.Error("entered details lost on failure")
	}
	if state.GenerationsLeft != 0 {
		t.Errorf("GenerationsLeft = %d after failed payment, want 0", state.GenerationsLeft)
	}
}

func TestControllerIgnoresNonImageUpload(t *testing.T) {
	env := newTestEnv(3)
	env.controller.SelectStyle(models.StyleOption{ID: 3, Title: "Pixar"})

	state := env.controller.LoadImage("notes.txt", bytes.NewReader([]byte("plain text")))

	if state.Phase != PhaseStyleChosen {
		t.Errorf("Phase = %s after non-image upload, want style_chosen", state.Phase)
	}
	if state.SourceImage != "" {
		t.Error("non-image file published as source image")
	}
}

func TestControllerHistoryFlow(t *testing.T) {
	env := newTestEnv(3)
	env.history.records = []models.HistoryRecord{
		{ID: 1, Style: "pixar"},
		{ID: 2, Style: "ghibli"},
	}
	env.selectAndUpload(t)

	env.controller.ShowHistory()
	waitFor(t, func() bool { return !env.controller.Snapshot().LoadingHistory })

	state := env.controller.Snapshot()
	if len(state.History) != 2 {
		t.Fatalf("History has %d records, want 2", len(state.History))
	}
	if state.Style != nil || state.SourceImage != "" {
		t.Error("selection state survived entering history")
	}

	env.controller.DeleteHistoryRecord(1)
	waitFor(t, func() bool { return len(env.controller.Snapshot().History) == 1 })

	if env.controller.Snapshot().History[0].ID != 1 {
		// Record 1 deleted, record 2 remains.
		if env.controller.Snapshot().History[0].ID != 2 {
			t.Errorf("unexpected surviving record: %+v", env.controller.Snapshot().History)
		}
	} else {
		t.Error("deleted record still present")
	}
}

func TestControllerLogoutPreservesQuota(t *testing.T) {
	env := newTestEnv(3)
	env.selectAndUpload(t)

	state := env.controller.Logout()

	if state.Phase != PhaseIdle || state.Style != nil {
		t.Error("logout did not return to landing state")
	}
	if state.GenerationsLeft != 3 {
		t.Errorf("GenerationsLeft = %d after logout, want 3", state.GenerationsLeft)
	}
	if env.quota.Remaining() != 3 {
		t.Error("logout touched the quota tracker")
	}
}
