// Package vapi is a thin REST client for the Vapi voice-AI telephony
// platform: outbound call placement and call status reads.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

const maxResponseSizeBytes = 2 << 20

type Config struct {
	APIKey        string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	BaseURL       string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.vapi.ai"`
	AssistantID   string        `envconfig:"ASSISTANT_ID" split_words:"true"`
	PhoneNumberID string        `envconfig:"OUTBOUND_PHONE_NUMBER_ID" split_words:"true"`
	WebhookSecret string        `envconfig:"WEBHOOK_SECRET" split_words:"true"`
	Timeout       time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("vapi base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid vapi base url: %w", err)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("vapi api key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func MustNew(cfg Config, opts ...Option) *Client {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

type createCallBody struct {
	AssistantID        string         `json:"assistantId"`
	PhoneNumberID      string         `json:"phoneNumberId,omitempty"`
	Customer           callCustomer   `json:"customer"`
	AssistantOverrides *callOverrides `json:"assistantOverrides,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

type callCustomer struct {
	Number string `json:"number"`
}

type callOverrides struct {
	FirstMessage string `json:"firstMessage"`
}

// CreateCall asks the platform to dial the customer number with the given
// assistant. The first-message override carries the call briefing.
func (c *Client) CreateCall(ctx context.Context, req contractx.CreateCallRequest) (contractx.CallInfo, error) {
	if strings.TrimSpace(req.AssistantID) == "" {
		return contractx.CallInfo{}, fmt.Errorf("%w: assistant id for call creation", contractx.ErrConfiguration)
	}
	if strings.TrimSpace(req.CustomerNumber) == "" {
		return contractx.CallInfo{}, fmt.Errorf("%w: customer number for call creation", contractx.ErrValidation)
	}

	body := createCallBody{
		AssistantID:   req.AssistantID,
		PhoneNumberID: req.PhoneNumberID,
		Customer:      callCustomer{Number: req.CustomerNumber},
		Metadata:      req.Metadata,
	}
	if req.FirstMessage != "" {
		body.AssistantOverrides = &callOverrides{FirstMessage: req.FirstMessage}
	}

	var info contractx.CallInfo
	if err := c.do(ctx, http.MethodPost, "/call", body, &info); err != nil {
		return contractx.CallInfo{}, err
	}

	log.Info().Str("call_id", info.ID).Str("status", info.Status).Msg("outbound call created")
	return info, nil
}

// GetCallStatus reads the platform's current view of a call.
func (c *Client) GetCallStatus(ctx context.Context, callID string) (contractx.CallInfo, error) {
	if strings.TrimSpace(callID) == "" {
		return contractx.CallInfo{}, fmt.Errorf("%w: call id is required", contractx.ErrValidation)
	}
	var info contractx.CallInfo
	if err := c.do(ctx, http.MethodGet, "/call/"+url.PathEscape(callID), nil, &info); err != nil {
		return contractx.CallInfo{}, err
	}
	return info, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal vapi request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build vapi request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute vapi request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read vapi response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &contractx.UpstreamError{
			Provider:   "vapi",
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode vapi response: %w", err)
	}
	return nil
}
