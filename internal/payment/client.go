package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/vymjay/aprylo/pkg/errors"
	"github.com/vymjay/aprylo/pkg/httpclient"
)

// Gateway charges orders through the external payment provider.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// ChargeRequest describes one charge attempt. Amount is in cents.
type ChargeRequest struct {
	OrderID  string `json:"order_id"`
	UserID   string `json:"user_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// ChargeResult is the provider's answer to a successful charge.
type ChargeResult struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

type declineResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client calls the payment provider over HTTP, behind a circuit breaker.
type Client struct {
	http    *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a payment gateway client.
func NewClient(http *httpclient.CircuitBreakerClient, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    http,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Charge submits a charge. A declined card comes back as a payment failure
// the caller can compensate for; transport and provider errors are internal.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal charge request: %w", err)
	}

	resp, err := c.http.Post(ctx, c.baseURL+"/v1/charges", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err, "payment provider unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var result ChargeResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode charge response: %w", err)
		}
		c.logger.InfoContext(ctx, "payment charged",
			slog.String("order_id", req.OrderID),
			slog.String("reference", result.Reference),
		)
		return &result, nil

	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		var decline declineResponse
		if err := json.NewDecoder(resp.Body).Decode(&decline); err != nil {
			decline.Message = "payment declined"
		}
		c.logger.WarnContext(ctx, "payment declined",
			slog.String("order_id", req.OrderID),
			slog.String("code", decline.Code),
		)
		return nil, apperrors.PaymentFailed(decline.Message)

	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("payment provider returned %d: %s", resp.StatusCode, string(snippet))
	}
}
