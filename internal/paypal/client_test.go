package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func tokenHandler(t *testing.T, w http.ResponseWriter, r *http.Request) {
	t.Helper()

	if r.Method != http.MethodPost {
		t.Fatalf("token method = %s, want POST", r.Method)
	}
	user, pass, ok := r.BasicAuth()
	if !ok || user != "client-id" || pass != "client-secret" {
		t.Fatalf("unexpected basic auth: %s %s", user, pass)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: "test-token",
		ExpiresIn:   3600,
	})
}

func TestCreatePayment_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			tokenHandler(t, w, r)
		case "/v1/payments/payment":
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Fatalf("authorization = %q", got)
			}

			var req createPaymentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.Intent != "sale" {
				t.Fatalf("intent = %q, want sale", req.Intent)
			}
			if len(req.Transactions) != 1 || req.Transactions[0].Amount.Total != "49.99" {
				t.Fatalf("unexpected transactions: %+v", req.Transactions)
			}
			items := req.Transactions[0].ItemList.Items
			if len(items) != 1 || items[0].SKU != "course-1" || items[0].Quantity != 1 {
				t.Fatalf("unexpected items: %+v", items)
			}
			if req.RedirectURLs.ReturnURL != "http://client/payment-return" {
				t.Fatalf("return url = %q", req.RedirectURLs.ReturnURL)
			}

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(paymentResource{
				ID:    "PAY-1",
				State: "created",
				Links: []paymentLink{
					{Href: "http://paypal/self", Rel: "self"},
					{Href: "http://paypal/approve", Rel: "approval_url"},
				},
			})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "client-id", "client-secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := client.CreatePayment(ctx, PaymentRequest{
		ItemName:  "Go for Beginners",
		ItemSKU:   "course-1",
		Total:     "49.99",
		Currency:  "USD",
		ReturnURL: "http://client/payment-return",
		CancelURL: "http://client/payment-cancel",
	})
	if err != nil {
		t.Fatalf("CreatePayment error: %v", err)
	}
	if res.PaymentID != "PAY-1" {
		t.Fatalf("payment id = %q, want PAY-1", res.PaymentID)
	}
	if res.ApproveURL != "http://paypal/approve" {
		t.Fatalf("approve url = %q", res.ApproveURL)
	}
}

func TestCreatePayment_NoApprovalLink(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			tokenHandler(t, w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(paymentResource{ID: "PAY-1"})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "client-id", "client-secret")

	_, err := client.CreatePayment(context.Background(), PaymentRequest{Total: "10.00", Currency: "USD"})
	if err == nil {
		t.Fatalf("expected error when approval url is missing")
	}
}

func TestCreatePayment_GatewayError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			tokenHandler(t, w, r)
			return
		}
		http.Error(w, `{"name":"VALIDATION_ERROR"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "client-id", "client-secret")

	_, err := client.CreatePayment(context.Background(), PaymentRequest{Total: "10.00", Currency: "USD"})

	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gwErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", gwErr.StatusCode, http.StatusBadRequest)
	}
}

func TestExecutePayment_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			tokenHandler(t, w, r)
		case "/v1/payments/payment/PAY-1/execute":
			var req executePaymentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.PayerID != "PAYER-1" {
				t.Fatalf("payer id = %q, want PAYER-1", req.PayerID)
			}
			if len(req.Transactions) != 1 || req.Transactions[0].Amount.Total != "49.99" {
				t.Fatalf("unexpected transactions: %+v", req.Transactions)
			}

			resource := paymentResource{ID: "PAY-1", State: "approved"}
			resource.Payer.PayerInfo.PayerID = "PAYER-1"

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resource)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "client-id", "client-secret")

	receipt, err := client.ExecutePayment(context.Background(), "PAY-1", "PAYER-1", "49.99", "USD")
	if err != nil {
		t.Fatalf("ExecutePayment error: %v", err)
	}
	if receipt.State != "approved" || receipt.PayerID != "PAYER-1" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
}

func TestTokenCached(t *testing.T) {
	tokenCalls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			tokenCalls++
			tokenHandler(t, w, r)
			return
		}
		resource := paymentResource{
			ID:    "PAY-1",
			Links: []paymentLink{{Href: "http://paypal/approve", Rel: "approval_url"}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resource)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "client-id", "client-secret")

	for i := 0; i < 3; i++ {
		if _, err := client.CreatePayment(context.Background(), PaymentRequest{Total: "10.00", Currency: "USD"}); err != nil {
			t.Fatalf("CreatePayment error: %v", err)
		}
	}

	if tokenCalls != 1 {
		t.Fatalf("token requests = %d, want 1", tokenCalls)
	}
}

func TestNotConfigured(t *testing.T) {
	client := NewClient("http://localhost", "", "")

	_, err := client.CreatePayment(context.Background(), PaymentRequest{Total: "10.00", Currency: "USD"})
	if err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}
