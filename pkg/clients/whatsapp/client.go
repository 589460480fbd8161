// Package whatsapp is a minimal WhatsApp Cloud API client for text messages.
package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/config"
)

// Client exposes WhatsApp Cloud API operations used by the application.
type Client interface {
	SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
	logger        *zap.Logger
}

// NewClient builds a WhatsApp API client using the provided configuration values.
func NewClient(cfg config.WhatsAppConfig, logger *zap.Logger) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient:    restyClient,
		phoneNumberID: cfg.PhoneNumberID,
		logger:        logger,
	}
}

// SendTextMessageRequest represents a simplified text message payload.
type SendTextMessageRequest struct {
	To         string
	Body       string
	PreviewURL bool
}

// SendTextMessageResponse mirrors the successful response from Meta.
type SendTextMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// APIError is a failure reported by the Cloud API.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d code=%d message=%s", e.Status, e.Code, e.Message)
}

type errorPayload struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

func (c *APIClient) SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error) {
	payload := textPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               req.To,
		Type:             "text",
		Text:             textBody{Body: req.Body, PreviewURL: req.PreviewURL},
	}

	result := new(SendTextMessageResponse)
	apiErr := new(errorPayload)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return nil, fmt.Errorf("send whatsapp message: %w", err)
	}

	if resp.IsError() {
		e := &APIError{Status: resp.StatusCode(), Code: apiErr.Error.Code, Message: apiErr.Error.Message}
		c.logger.Warn("whatsapp message rejected",
			zap.Int("status", e.Status),
			zap.Int("code", e.Code),
			zap.String("fbtrace_id", apiErr.Error.FBTraceID))
		return nil, e
	}

	if len(result.Messages) > 0 {
		c.logger.Debug("whatsapp message accepted", zap.String("message_id", result.Messages[0].ID))
	}
	return result, nil
}
