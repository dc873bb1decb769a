package workflow

import (
	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/models"
)

// Phase is the tagged union of workflow states. Exactly one phase is active
// at a time; the overlay flags (history, payment modal) are orthogonal.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseStyleChosen Phase = "style_chosen"
	PhaseUploaded    Phase = "uploaded"
	PhaseProcessing  Phase = "processing"
	PhaseResult      Phase = "result"
	PhaseError       Phase = "error"
)

// DefaultPaymentMethod is what the payment modal opens with and reverts to
// when dismissed.
const DefaultPaymentMethod = models.PaymentMethodUPI

// PaymentForm is the transient content of the payment modal. It never
// outlives the modal.
type PaymentForm struct {
	Method     models.PaymentMethod `json:"method"`
	UPIID      string               `json:"upi_id"`
	QRProvider string               `json:"qr_provider"`
	Card       models.CardDetails   `json:"card"`
}

// State is the composed UI state of one session. All transitions below are
// pure functions from (State, event) to a new State so they can be tested
// without any I/O.
type State struct {
	Phase        Phase               `json:"phase"`
	Style        *models.StyleOption `json:"style,omitempty"`
	SourceImage  string              `json:"source_image,omitempty"`
	OutputImage  string              `json:"output_image,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`

	GenerationsLeft int `json:"generations_left"`

	PaymentVisible    bool        `json:"payment_visible"`
	ProcessingPayment bool        `json:"processing_payment"`
	PaymentError      string      `json:"payment_error,omitempty"`
	Payment           PaymentForm `json:"payment"`

	HistoryVisible bool                   `json:"history_visible"`
	LoadingHistory bool                   `json:"loading_history"`
	History        []models.HistoryRecord `json:"history,omitempty"`
}

// NewState returns the landing state with the given quota.
func NewState(generationsLeft int) State {
	return State{
		Phase:           PhaseIdle,
		GenerationsLeft: generationsLeft,
		Payment:         PaymentForm{Method: DefaultPaymentMethod},
	}
}

// SelectStyle picks a style and clears any previous upload, output and
// error. Re-selecting also leaves the history view.
func SelectStyle(s State, style models.StyleOption) State {
	chosen := style
	s.Phase = PhaseStyleChosen
	s.Style = &chosen
	s.SourceImage = ""
	s.OutputImage = ""
	s.ErrorMessage = ""
	s.HistoryVisible = false
	s.LoadingHistory = false
	s.History = nil
	return s
}

// ImageLoaded publishes a freshly loaded source image. Without a chosen
// style there is nothing to attach the upload to, so the event is ignored.
func ImageLoaded(s State, dataURI string) State {
	if s.Style == nil {
		return s
	}
	s.Phase = PhaseUploaded
	s.SourceImage = dataURI
	s.OutputImage = ""
	s.ErrorMessage = ""
	return s
}

// BeginProcessing marks a submission in flight.
func BeginProcessing(s State) State {
	s.Phase = PhaseProcessing
	s.ErrorMessage = ""
	return s
}

// TransformSucceeded publishes the output image and the server's fresh
// quota value when it sent one.
func TransformSucceeded(s State, outputImage string, generationsLeft *int) State {
	s.Phase = PhaseResult
	s.OutputImage = outputImage
	s.ErrorMessage = ""
	if generationsLeft != nil {
		s = WithQuota(s, *generationsLeft)
	}
	return s
}

// TransformFailed surfaces the failure message. The selection and upload
// survive so the user can re-invoke the action.
func TransformFailed(s State, message string) State {
	s.Phase = PhaseError
	s.ErrorMessage = message
	return s
}

// QuotaExhausted routes an exhausted quota to the payment flow instead of
// the error surface. The style and upload are preserved so the user can
// resume after paying.
func QuotaExhausted(s State) State {
	s = WithQuota(s, 0)
	if s.Phase == PhaseProcessing {
		s.Phase = PhaseUploaded
	}
	return OpenPayment(s)
}

// WithQuota overwrites the displayed quota with a server-supplied value.
func WithQuota(s State, generationsLeft int) State {
	if generationsLeft < 0 {
		generationsLeft = 0
	}
	s.GenerationsLeft = generationsLeft
	return s
}

// OpenPayment shows the payment modal with a clean form.
func OpenPayment(s State) State {
	s.PaymentVisible = true
	s.ProcessingPayment = false
	s.PaymentError = ""
	s.Payment = PaymentForm{Method: DefaultPaymentMethod}
	return s
}

// ClosePayment dismisses the modal and wipes all transient payment state.
func ClosePayment(s State) State {
	s.PaymentVisible = false
	s.ProcessingPayment = false
	s.PaymentError = ""
	s.Payment = PaymentForm{Method: DefaultPaymentMethod}
	return s
}

// SetPaymentMethod switches the active method and resets the fields of the
// method being left; the two methods' inputs never interleave.
func SetPaymentMethod(s State, method models.PaymentMethod) State {
	if s.Payment.Method == method {
		return s
	}
	s.Payment.Method = method
	s.PaymentError = ""
	switch method {
	case models.PaymentMethodCard:
		s.Payment.UPIID = ""
		s.Payment.QRProvider = ""
	case models.PaymentMethodUPI:
		s.Payment.Card = models.CardDetails{}
	}
	return s
}

// PaymentSubmitted marks the payment request in flight, keeping the entered
// details for a possible retry.
func PaymentSubmitted(s State, form PaymentForm) State {
	s.Payment = form
	s.ProcessingPayment = true
	s.PaymentError = ""
	return s
}

// PaymentSucceeded closes the modal, clears the form and applies the
// server's new quota.
func PaymentSucceeded(s State, generationsLeft *int) State {
	s = ClosePayment(s)
	if generationsLeft != nil {
		s = WithQuota(s, *generationsLeft)
	}
	return s
}

// PaymentFailed keeps the modal open with the entered details retained.
func PaymentFailed(s State, message string) State {
	s.ProcessingPayment = false
	s.PaymentError = message
	return s
}

// EnterHistory opens the history view. The two views are mutually
// exclusive: any in-progress selection, upload and output are cleared.
func EnterHistory(s State) State {
	s.Phase = PhaseIdle
	s.Style = nil
	s.SourceImage = ""
	s.OutputImage = ""
	s.ErrorMessage = ""
	s.HistoryVisible = true
	s.LoadingHistory = true
	return s
}

// HistoryLoaded publishes a fetched (already normalized) record list.
func HistoryLoaded(s State, records []models.HistoryRecord) State {
	s.LoadingHistory = false
	s.History = records
	return s
}

// ExitHistory leaves the history view and drops the cached records.
func ExitHistory(s State) State {
	s.HistoryVisible = false
	s.LoadingHistory = false
	s.History = nil
	return s
}

// Reset is the explicit "choose a different style" action: upload, output
// and error are cleared while the selection survives.
func Reset(s State) State {
	s.SourceImage = ""
	s.OutputImage = ""
	s.ErrorMessage = ""
	if s.Style != nil {
		s.Phase = PhaseStyleChosen
	} else {
		s.Phase = PhaseIdle
	}
	return s
}

// Logout returns to the landing state. The quota is the user's, not the
// screen's, so it survives.
func Logout(s State) State {
	quota := s.GenerationsLeft
	return NewState(quota)
}
