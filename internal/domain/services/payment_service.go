package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/models"
	"github.com/KK-2k06/AI-Image-Transformation/internal/infrastructure/backend"
)

// PaymentFailureMessage is the generic fallback when the backend rejects a
// payment without a message of its own.
const PaymentFailureMessage = "Payment could not be completed. Please try again."

// PaymentBackend is the slice of the backend client the payment path needs.
type PaymentBackend interface {
	SubmitPayment(ctx context.Context, payment *backend.PaymentRequest) (*backend.PaymentResult, error)
}

type PaymentService interface {
	Pay(ctx context.Context, userID int64, tx *models.PaymentTransaction) *PaymentResponse
}

type PaymentStatus string

const (
	// PaymentInvalid: rejected locally before any network call.
	PaymentInvalid   PaymentStatus = "invalid"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentRejected  PaymentStatus = "rejected"
)

type PaymentResponse struct {
	Status          PaymentStatus
	GenerationsLeft *int
	Message         string
}

type paymentService struct {
	backend PaymentBackend
	quota   *QuotaTracker
	logger  *slog.Logger
}

func NewPaymentService(client PaymentBackend, quota *QuotaTracker, logger *slog.Logger) PaymentService {
	return &paymentService{
		backend: client,
		quota:   quota,
		logger:  logger,
	}
}

// Pay validates the transaction locally, then submits the fixed-price
// purchase. On success the server-returned quota replaces the local value;
// on rejection the caller keeps the entered details so the user can retry.
func (s *paymentService) Pay(ctx context.Context, userID int64, tx *models.PaymentTransaction) *PaymentResponse {
	if message, ok := validateTransaction(tx); !ok {
		return &PaymentResponse{Status: PaymentInvalid, Message: message}
	}

	req := &backend.PaymentRequest{
		UserID:        userID,
		PaymentMethod: string(tx.Method),
		Amount:        models.UnitPrice,
		Generations:   models.GenerationsPerPurchase,
	}
	switch tx.Method {
	case models.PaymentMethodUPI:
		req.UPIID = tx.UPIID
		if req.UPIID == "" {
			req.UPIID = tx.QRProvider
		}
	case models.PaymentMethodCard:
		card := tx.Card
		req.CardDetails = &card
	}

	result, err := s.backend.SubmitPayment(ctx, req)
	if err != nil {
		return s.interpretFailure(userID, err)
	}

	if result.GenerationsLeft != nil {
		s.quota.ApplyServerUpdate(*result.GenerationsLeft)
	}
	s.logger.Info("payment completed",
		"user_id", userID,
		"method", tx.Method,
		"generations_granted", models.GenerationsPerPurchase)

	return &PaymentResponse{
		Status:          PaymentSucceeded,
		GenerationsLeft: result.GenerationsLeft,
		Message:         result.Message,
	}
}

func (s *paymentService) interpretFailure(userID int64, err error) *PaymentResponse {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = PaymentFailureMessage
		}
		s.logger.Error("payment rejected", "error", err, "user_id", userID)
		return &PaymentResponse{Status: PaymentRejected, Message: message}
	}

	s.logger.Error("payment request failed", "error", err, "user_id", userID)
	return &PaymentResponse{Status: PaymentRejected, Message: PaymentFailureMessage}
}

// validateTransaction enforces the per-method required fields before any
// network call.
func validateTransaction(tx *models.PaymentTransaction) (string, bool) {
	switch tx.Method {
	case models.PaymentMethodUPI:
		if tx.UPIID == "" && tx.QRProvider == "" {
			return "Please enter your UPI ID or choose a UPI app.", false
		}
	case models.PaymentMethodCard:
		card := tx.Card
		required := []string{
			card.FullName,
			card.Email,
			card.Address,
			card.CardNumber,
			card.NameOnCard,
			card.ExpiryMonth,
			card.ExpiryYear,
			card.CVV,
		}
		for _, field := range required {
			if field == "" {
				return "Please fill in all card details.", false
			}
		}
	default:
		return "Please choose a payment method.", false
	}
	return "", true
}
