package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/config"
	apperrors "storefront/internal/errors"
)

const (
	defaultGatewayTimeout = 5 * time.Second
	maxGatewayResponse    = 1 << 20
)

// RazorpayClient creates orders through the Razorpay Orders REST API. Calls are
// bounded by the configured timeout and never retried: without a gateway-side
// idempotency key a retry could open a second order.
type RazorpayClient struct {
	keyID      string
	keySecret  string
	configured bool
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

func NewRazorpayClient(cfg config.GatewayConfig, httpClient *http.Client, logger *zap.Logger) *RazorpayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RazorpayClient{
		keyID:      strings.TrimSpace(cfg.KeyID),
		keySecret:  strings.TrimSpace(cfg.KeySecret),
		configured: cfg.Configured(),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *RazorpayClient) Configured() bool {
	return c.configured
}

func (c *RazorpayClient) PublicKey() string {
	return c.keyID
}

type razorpayOrderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error) {
	if !c.Configured() {
		return nil, apperrors.NewConfigurationError("payment gateway credentials missing")
	}

	currency := req.Currency
	if currency == "" {
		currency = Currency
	}

	body, err := json.Marshal(razorpayOrderBody{
		Amount:   req.AmountMinor,
		Currency: currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding gateway order: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building gateway request: %w", err)
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("gateway order request failed",
			zap.String("receipt", req.Receipt),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewUpstreamError("payment gateway timed out", err)
		}
		return nil, apperrors.NewUpstreamError("payment gateway request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayResponse))
	if err != nil {
		return nil, apperrors.NewUpstreamError("reading payment gateway response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var gwErr razorpayErrorBody
		_ = json.Unmarshal(payload, &gwErr)
		c.logger.Warn("gateway rejected order",
			zap.String("receipt", req.Receipt),
			zap.Int("status", resp.StatusCode),
			zap.String("code", gwErr.Error.Code),
			zap.String("description", gwErr.Error.Description),
		)
		return nil, apperrors.NewUpstreamError(
			fmt.Sprintf("payment gateway returned status %d", resp.StatusCode),
			errors.New(gwErr.Error.Description),
		)
	}

	var order GatewayOrder
	if err := json.Unmarshal(payload, &order); err != nil {
		return nil, apperrors.NewUpstreamError("decoding payment gateway response", err)
	}
	if order.ID == "" {
		return nil, apperrors.NewUpstreamError("payment gateway response missing order id", nil)
	}
	order.Raw = json.RawMessage(payload)

	c.logger.Info("gateway order created",
		zap.String("receipt", req.Receipt),
		zap.String("gatewayOrderId", order.ID),
		zap.Int64("amount", order.Amount),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &order, nil
}
