// Package paypal предоставляет клиент для платёжного провайдера PayPal.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	sandboxURL = "https://api.sandbox.paypal.com"
	liveURL    = "https://api.paypal.com"
)

// BaseURL возвращает адрес API провайдера для указанного режима работы.
func BaseURL(mode string) string {
	if mode == "live" {
		return liveURL
	}
	return sandboxURL
}

// GatewayError описывает отказ платёжного провайдера.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("paypal: status %d: %s", e.StatusCode, e.Body)
}

// Client инкапсулирует HTTP-взаимодействие с PayPal REST API.
type Client struct {
	baseURL    string
	clientID   string
	secret     string
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient создаёт HTTP-клиент PayPal с указанным адресом API и учётными данными.
func NewClient(baseURL, clientID, secret string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		secret:   secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PaymentRequest описывает параметры создаваемого платежа с одной позицией.
type PaymentRequest struct {
	ItemName    string
	ItemSKU     string
	Total       string
	Currency    string
	Description string
	ReturnURL   string
	CancelURL   string
}

// CreatedPayment содержит идентификатор созданного платежа и адрес подтверждения.
type CreatedPayment struct {
	PaymentID  string
	ApproveURL string
}

// Receipt содержит результат исполнения платежа.
type Receipt struct {
	PaymentID string
	State     string
	PayerID   string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type paymentAmount struct {
	Currency string `json:"currency"`
	Total    string `json:"total"`
}

type paymentItem struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

type paymentTransaction struct {
	ItemList *struct {
		Items []paymentItem `json:"items"`
	} `json:"item_list,omitempty"`
	Amount      paymentAmount `json:"amount"`
	Description string        `json:"description,omitempty"`
}

type paymentLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paymentResource struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Payer struct {
		PayerInfo struct {
			PayerID string `json:"payer_id"`
		} `json:"payer_info"`
	} `json:"payer"`
	Links []paymentLink `json:"links"`
}

type createPaymentRequest struct {
	Intent string `json:"intent"`
	Payer  struct {
		PaymentMethod string `json:"payment_method"`
	} `json:"payer"`
	RedirectURLs struct {
		ReturnURL string `json:"return_url"`
		CancelURL string `json:"cancel_url"`
	} `json:"redirect_urls"`
	Transactions []paymentTransaction `json:"transactions"`
}

type executePaymentRequest struct {
	PayerID      string               `json:"payer_id"`
	Transactions []paymentTransaction `json:"transactions"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c == nil || c.clientID == "" || c.secret == "" {
		return "", fmt.Errorf("paypal client not configured")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &GatewayError{Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = tr.AccessToken
	// Запас в 30 секунд, чтобы не отправить запрос с протухшим токеном.
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - 30*time.Second)

	return c.accessToken, nil
}

func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GatewayError{Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &GatewayError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// CreatePayment создаёт платёж sale с одной позицией и возвращает его
// идентификатор и адрес подтверждения оплаты покупателем.
func (c *Client) CreatePayment(ctx context.Context, pr PaymentRequest) (*CreatedPayment, error) {
	var body createPaymentRequest
	body.Intent = "sale"
	body.Payer.PaymentMethod = "paypal"
	body.RedirectURLs.ReturnURL = pr.ReturnURL
	body.RedirectURLs.CancelURL = pr.CancelURL

	tx := paymentTransaction{
		ItemList: &struct {
			Items []paymentItem `json:"items"`
		}{
			Items: []paymentItem{{
				Name:     pr.ItemName,
				SKU:      pr.ItemSKU,
				Price:    pr.Total,
				Currency: pr.Currency,
				Quantity: 1,
			}},
		},
		Amount: paymentAmount{
			Currency: pr.Currency,
			Total:    pr.Total,
		},
		Description: pr.Description,
	}
	body.Transactions = []paymentTransaction{tx}

	var res paymentResource
	if err := c.post(ctx, "/v1/payments/payment", body, &res); err != nil {
		return nil, err
	}

	approveURL := ""
	for _, link := range res.Links {
		if link.Rel == "approval_url" {
			approveURL = link.Href
			break
		}
	}
	if approveURL == "" {
		return nil, fmt.Errorf("approval url not found in payment response")
	}

	return &CreatedPayment{
		PaymentID:  res.ID,
		ApproveURL: approveURL,
	}, nil
}

// ExecutePayment исполняет ранее подтверждённый покупателем платёж.
func (c *Client) ExecutePayment(ctx context.Context, paymentID, payerID, total, currency string) (*Receipt, error) {
	body := executePaymentRequest{
		PayerID: payerID,
		Transactions: []paymentTransaction{{
			Amount: paymentAmount{
				Currency: currency,
				Total:    total,
			},
		}},
	}

	var res paymentResource
	if err := c.post(ctx, "/v1/payments/payment/"+paymentID+"/execute", body, &res); err != nil {
		return nil, err
	}

	return &Receipt{
		PaymentID: res.ID,
		State:     res.State,
		PayerID:   res.Payer.PayerInfo.PayerID,
	}, nil
}
