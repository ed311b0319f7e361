package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ManuelReschke/QuizFox/internal/pkg/env"
)

const (
	defaultMidtransSnapURL = "https://app.sandbox.midtrans.com"
	defaultMidtransAPIURL  = "https://api.sandbox.midtrans.com"
	prodMidtransSnapURL    = "https://app.midtrans.com"
	prodMidtransAPIURL     = "https://api.midtrans.com"
)

// ErrTransactionNotFound is returned by TransactionStatus when the gateway has
// no record of the order yet, e.g. the buyer never picked a payment method.
var ErrTransactionNotFound = errors.New("gateway: transaction not found")

// Gateway is the payment provider used for checkout and status lookups.
type Gateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (*TransactionToken, error)
	TransactionStatus(ctx context.Context, orderID string) (*Notification, error)
}

type TransactionRequest struct {
	OrderID       string
	Amount        int64
	ItemID        string
	ItemName      string
	CustomerName  string
	CustomerEmail string
}

type TransactionToken struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// MidtransConfig configures the Midtrans Snap and Core API client.
type MidtransConfig struct {
	ServerKey string
	SnapURL   string
	APIURL    string
	Timeout   time.Duration
}

func MidtransConfigFromEnv() MidtransConfig {
	production := env.GetBool("MIDTRANS_IS_PRODUCTION", false)
	snapURL, apiURL := defaultMidtransSnapURL, defaultMidtransAPIURL
	if production {
		snapURL, apiURL = prodMidtransSnapURL, prodMidtransAPIURL
	}

	timeout := env.GetDuration("MIDTRANS_TIMEOUT_SECONDS", 15, time.Second)

	return MidtransConfig{
		ServerKey: strings.TrimSpace(env.GetEnv("MIDTRANS_SERVER_KEY", "")),
		SnapURL:   strings.TrimRight(env.GetEnv("MIDTRANS_SNAP_URL", snapURL), "/"),
		APIURL:    strings.TrimRight(env.GetEnv("MIDTRANS_API_URL", apiURL), "/"),
		Timeout:   timeout,
	}
}

type MidtransGateway struct {
	snap *resty.Client
	core *resty.Client
}

func NewMidtransGateway(cfg MidtransConfig) *MidtransGateway {
	newClient := func(baseURL string) *resty.Client {
		return resty.New().
			SetBaseURL(baseURL).
			SetTimeout(cfg.Timeout).
			SetBasicAuth(cfg.ServerKey, "").
			SetHeader("Accept", "application/json").
			SetHeader("Content-Type", "application/json")
	}

	core := newClient(cfg.APIURL).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &MidtransGateway{
		snap: newClient(cfg.SnapURL),
		core: core,
	}
}

type snapTransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type snapItemDetails struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

type snapCustomerDetails struct {
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

type snapRequest struct {
	TransactionDetails snapTransactionDetails `json:"transaction_details"`
	ItemDetails        []snapItemDetails      `json:"item_details"`
	CustomerDetails    snapCustomerDetails    `json:"customer_details"`
}

type midtransError struct {
	StatusCode    string   `json:"status_code"`
	StatusMessage string   `json:"status_message"`
	ErrorMessages []string `json:"error_messages"`
}

func (e midtransError) String() string {
	if len(e.ErrorMessages) > 0 {
		return strings.Join(e.ErrorMessages, "; ")
	}
	return e.StatusMessage
}

func (g *MidtransGateway) CreateTransaction(ctx context.Context, req TransactionRequest) (*TransactionToken, error) {
	body := snapRequest{
		TransactionDetails: snapTransactionDetails{OrderID: req.OrderID, GrossAmount: req.Amount},
		ItemDetails: []snapItemDetails{{
			ID:       req.ItemID,
			Price:    req.Amount,
			Quantity: 1,
			Name:     req.ItemName,
		}},
		CustomerDetails: snapCustomerDetails{FirstName: req.CustomerName, Email: req.CustomerEmail},
	}

	var token TransactionToken
	var apiErr midtransError
	resp, err := g.snap.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&token).
		SetError(&apiErr).
		Post("/snap/v1/transactions")
	if err != nil {
		return nil, fmt.Errorf("snap transaction request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("snap transaction request failed with status %d: %s", resp.StatusCode(), apiErr.String())
	}
	if token.Token == "" {
		return nil, errors.New("snap transaction response did not contain a token")
	}
	return &token, nil
}

func (g *MidtransGateway) TransactionStatus(ctx context.Context, orderID string) (*Notification, error) {
	var status Notification
	resp, err := g.core.R().
		SetContext(ctx).
		SetPathParam("orderID", orderID).
		SetResult(&status).
		Get("/v2/{orderID}/status")
	if err != nil {
		return nil, fmt.Errorf("transaction status request: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound || status.StatusCode == "404" {
		return nil, ErrTransactionNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("transaction status request failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	if status.OrderID == "" {
		status.OrderID = orderID
	}
	return &status, nil
}
