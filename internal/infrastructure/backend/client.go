package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/KK-2k06/AI-Image-Transformation/internal/config"
	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/models"
)

// ErrQuotaExhausted is returned when the backend explicitly reports zero
// remaining generations for the user, regardless of HTTP status.
var ErrQuotaExhausted = errors.New("generation quota exhausted")

// APIError is a service-reported failure carrying the backend's own message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend error (%d)", e.StatusCode)
}

// Client talks to the remote DreamInk backend over its fixed HTTP contract.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg config.BackendConfig, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		log: log,
	}
}

// styleEnvelope is the response body of POST /api/style/{route}. The image
// field may be raw base64 or an already-prefixed data URI.
type styleEnvelope struct {
	Message         string `json:"message"`
	Image           string `json:"image"`
	GenerationsLeft *int   `json:"generationsLeft"`
	Error           string `json:"error"`
}

// StylizeResult is a successful transformation response.
type StylizeResult struct {
	Image           string
	Message         string
	GenerationsLeft *int
}

// Stylize uploads the source image for one transformation. One request per
// submission; the caller decides about retries (there are none).
func (c *Client) Stylize(ctx context.Context, styleRoute string, userID int64, filename string, image []byte) (*StylizeResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := writer.WriteField("user_id", strconv.FormatInt(userID, 10)); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	url := fmt.Sprintf("%s/api/style/%s", c.baseURL, styleRoute)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transform request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transform response: %w", err)
	}

	var envelope styleEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	// The exhaustion signal takes priority over status-based handling: a 403
	// (or any error body) carrying generationsLeft: 0 means "go pay", not
	// "request failed".
	if envelope.GenerationsLeft != nil && *envelope.GenerationsLeft == 0 &&
		(resp.StatusCode == http.StatusForbidden || envelope.Error != "") {
		return nil, ErrQuotaExhausted
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || envelope.Error != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	if envelope.Image == "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	return &StylizeResult{
		Image:           envelope.Image,
		Message:         envelope.Message,
		GenerationsLeft: envelope.GenerationsLeft,
	}, nil
}

// GenerationsLeft fetches the authoritative quota value for a user.
func (c *Client) GenerationsLeft(ctx context.Context, userID int64) (int, error) {
	url := fmt.Sprintf("%s/api/user/%d/generations", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("quota request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		GenerationsLeft *int   `json:"generationsLeft"`
		Error           string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return 0, &APIError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK || envelope.GenerationsLeft == nil {
		return 0, &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	return *envelope.GenerationsLeft, nil
}

// History fetches the user's past transformation records. Image fields come
// back as the backend stored them; normalization is the caller's concern.
func (c *Client) History(ctx context.Context, userID int64) ([]models.HistoryRecord, error) {
	url := fmt.Sprintf("%s/api/history/%d", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		History []models.HistoryRecord `json:"history"`
		Error   string                 `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK || envelope.Error != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	return envelope.History, nil
}

// DeleteHistory removes one record.
func (c *Client) DeleteHistory(ctx context.Context, historyID int64) error {
	url := fmt.Sprintf("%s/api/history/%d", c.baseURL, historyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}
	return nil
}

// PaymentRequest is the body of POST /api/payment. Amount and generations
// are fixed by contract; the backend echoes the new quota on success.
type PaymentRequest struct {
	UserID        int64               `json:"user_id"`
	PaymentMethod string              `json:"payment_method"`
	Amount        int                 `json:"amount"`
	Generations   int                 `json:"generations"`
	UPIID         string              `json:"upi_id,omitempty"`
	CardDetails   *models.CardDetails `json:"card_details,omitempty"`
}

type PaymentResult struct {
	Success         bool
	GenerationsLeft *int
	Message         string
}

// SubmitPayment submits one simulated payment transaction.
func (c *Client) SubmitPayment(ctx context.Context, payment *PaymentRequest) (*PaymentResult, error) {
	body, err := json.Marshal(payment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/payment", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success         bool   `json:"success"`
		GenerationsLeft *int   `json:"generationsLeft"`
		Message         string `json:"message"`
		Error           string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || envelope.Error != "" || !envelope.Success {
		message := envelope.Error
		if message == "" {
			message = envelope.Message
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	return &PaymentResult{
		Success:         envelope.Success,
		GenerationsLeft: envelope.GenerationsLeft,
		Message:         envelope.Message,
	}, nil
}
