package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/models"
	"github.com/KK-2k06/AI-Image-Transformation/internal/imageio"
	"github.com/KK-2k06/AI-Image-Transformation/internal/infrastructure/backend"
)

const (
	// GenericErrorMessage is shown when the backend rejects a request
	// without supplying its own message.
	GenericErrorMessage = "Something went wrong. Please try again."
	// ConnectivityErrorMessage is shown on transport failures.
	ConnectivityErrorMessage = "Could not reach the server. Please check your connection and try again."
)

// TransformBackend is the slice of the backend client the transformation
// path needs.
type TransformBackend interface {
	Stylize(ctx context.Context, styleRoute string, userID int64, filename string, image []byte) (*backend.StylizeResult, error)
}

type TransformService interface {
	Submit(ctx context.Context, req *TransformRequest) *TransformResponse
}

// TransformRequest is one submission: the chosen style plus the uploaded
// source image. It exists only for the duration of the call.
type TransformRequest struct {
	UserID         int64
	Style          models.StyleOption
	SourceFilename string
	SourceImage    []byte
}

type TransformStatus string

const (
	// TransformSkipped: preconditions not met, nothing happened.
	TransformSkipped TransformStatus = "skipped"
	TransformSucceeded TransformStatus = "succeeded"
	// TransformQuotaExhausted: no output; the payment flow should open.
	TransformQuotaExhausted TransformStatus = "quota_exhausted"
	TransformFailed TransformStatus = "failed"
)

type TransformResponse struct {
	Status          TransformStatus
	OutputImage     string
	GenerationsLeft *int
	ErrorMessage    string
}

type transformService struct {
	backend TransformBackend
	quota   *QuotaTracker
	logger  *slog.Logger
}

func NewTransformService(client TransformBackend, quota *QuotaTracker, logger *slog.Logger) TransformService {
	return &transformService{
		backend: client,
		quota:   quota,
		logger:  logger,
	}
}

// Submit runs one transformation job. It never retries: every outcome
// resolves to a stable, re-triable state for the caller.
func (s *transformService) Submit(ctx context.Context, req *TransformRequest) *TransformResponse {
	if len(req.SourceImage) == 0 || req.Style.Title == "" {
		return &TransformResponse{Status: TransformSkipped}
	}

	// The local quota value is advisory, but a known-zero count never
	// reaches the backend: the payment flow opens instead.
	if !s.quota.CanSubmit() {
		return &TransformResponse{Status: TransformQuotaExhausted}
	}

	route, exact := models.RouteForTitle(req.Style.Title)
	if !exact {
		s.logger.Warn("unknown style title, using default route",
			"title", req.Style.Title,
			"route", route)
	}

	result, err := s.backend.Stylize(ctx, route, req.UserID, req.SourceFilename, req.SourceImage)
	if err != nil {
		return s.interpretFailure(req.UserID, err)
	}

	if result.GenerationsLeft != nil {
		s.quota.ApplyServerUpdate(*result.GenerationsLeft)
	}

	return &TransformResponse{
		Status:          TransformSucceeded,
		OutputImage:     imageio.Normalize(result.Image),
		GenerationsLeft: result.GenerationsLeft,
	}
}

func (s *transformService) interpretFailure(userID int64, err error) *TransformResponse {
	if errors.Is(err, backend.ErrQuotaExhausted) {
		// The server overrides whatever the client last believed.
		s.quota.MarkExhausted()
		s.logger.Info("backend reported quota exhausted", "user_id", userID)
		return &TransformResponse{Status: TransformQuotaExhausted}
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = GenericErrorMessage
		}
		s.logger.Error("transformation rejected", "error", err, "user_id", userID)
		return &TransformResponse{Status: TransformFailed, ErrorMessage: message}
	}

	s.logger.Error("transformation request failed", "error", fmt.Errorf("transport: %w", err), "user_id", userID)
	return &TransformResponse{Status: TransformFailed, ErrorMessage: ConnectivityErrorMessage}
}
