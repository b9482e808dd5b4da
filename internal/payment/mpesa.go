// Package payment builds, signs and submits M-Pesa STK push requests.
// It models only the initiation envelope; settlement arrives later on
// the gateway's callback and is acknowledged by the HTTP layer.
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrValidation = errors.New("amount and phone required")
	ErrAuth       = errors.New("gateway authentication failed")
	ErrGateway    = errors.New("gateway request failed")
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	tokenPath   = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"

	defaultAccountReference = "VYG"
	transactionDesc         = "VYG Payment"

	maxErrorBody = 64 << 10
)

// Config carries the gateway credentials and environment selection.
// BaseURL overrides the env-derived URL; tests point it at a fake
// gateway.
type Config struct {
	Env            string // "production" or anything else for sandbox
	ConsumerKey    string
	ConsumerSecret string
	Passkey        string
	Shortcode      string
	CallbackURL    string
	BaseURL        string
	Timeout        time.Duration
}

// Client exchanges a bearer token and submits payment initiations. The
// token is acquired fresh on every initiation; nothing is cached.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cfg        Config

	now func() time.Time
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Env == "production" {
			baseURL = productionBaseURL
		} else {
			baseURL = sandboxBaseURL
		}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		cfg:        cfg,
		now:        time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// token exchanges the consumer credentials for a short-lived bearer
// token over HTTP Basic auth.
func (c *Client) token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", ErrAuth, resp.StatusCode, readErrorBody(resp.Body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%w: failed to decode token response: %v", ErrAuth, err)
	}
	return tok.AccessToken, nil
}

// stkPushPayload is the Daraja initiation envelope. The shortcode is
// both the collecting and paying party.
type stkPushPayload struct {
	BusinessShortCode string      `json:"BusinessShortCode"`
	Password          string      `json:"Password"`
	Timestamp         string      `json:"Timestamp"`
	TransactionType   string      `json:"TransactionType"`
	Amount            json.Number `json:"Amount"`
	PartyA            string      `json:"PartyA"`
	PartyB            string      `json:"PartyB"`
	PhoneNumber       string      `json:"PhoneNumber"`
	CallBackURL       string      `json:"CallBackURL"`
	AccountReference  string      `json:"AccountReference"`
	TransactionDesc   string      `json:"TransactionDesc"`
}

// Initiate submits an STK push for amount against phone. The returned
// payload is the gateway's correlation response, passed through
// verbatim. Validation failures happen before any network call.
func (c *Client) Initiate(ctx context.Context, amount json.Number, phone, accountReference string) (json.RawMessage, error) {
	if amount == "" || phone == "" {
		return nil, ErrValidation
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	if accountReference == "" {
		accountReference = defaultAccountReference
	}
	timestamp := Timestamp(c.now())

	payload := stkPushPayload{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          Password(c.cfg.Shortcode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountReference,
		TransactionDesc:   transactionDesc,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initiation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+stkPushPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create initiation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrGateway, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(respBody))
		if detail == "" {
			detail = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrGateway, detail)
	}
	return json.RawMessage(respBody), nil
}

// Timestamp renders t in the gateway's YYYYMMDDHHMMSS form.
func Timestamp(t time.Time) string {
	return t.Format("20060102150405")
}

// Password derives the initiation password: base64 of shortcode,
// passkey and timestamp concatenated.
func Password(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}
