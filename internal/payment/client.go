package payment

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"tokopos-backend/internal/config"
	"tokopos-backend/internal/models"

	"github.com/guonaihong/gout"
)

// GatewayTimeout bounds every outbound gateway call.
const GatewayTimeout = 10 * time.Second

// HTTPGateway talks to the hosted-invoice provider's REST API. Every call
// carries a bounded timeout; a hung gateway must not hang a request handler.
type HTTPGateway struct {
	baseURL    string
	apiKey     string
	successURL string
	failureURL string
	duration   time.Duration
}

var _ Gateway = (*HTTPGateway)(nil)

func NewHTTPGateway(cfg *config.Config) *HTTPGateway {
	return &HTTPGateway{
		baseURL:    cfg.GatewayBaseURL,
		apiKey:     cfg.GatewayAPIKey,
		successURL: cfg.GatewaySuccessURL,
		failureURL: cfg.GatewayFailureURL,
		duration:   cfg.InvoiceDuration,
	}
}

func (g *HTTPGateway) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(g.apiKey+":"))
}

func (g *HTTPGateway) CreateInvoice(ctx context.Context, p CreateInvoiceParams) (*Invoice, error) {
	if p.SuccessURL == "" {
		p.SuccessURL = g.successURL
	}
	if p.FailureURL == "" {
		p.FailureURL = g.failureURL
	}
	if p.Duration <= 0 {
		p.Duration = g.duration
	}

	body := gout.H{
		"external_id":          p.ExternalID,
		"amount":               p.Amount,
		"currency":             p.Currency,
		"description":          p.Description,
		"success_redirect_url": p.SuccessURL,
		"failure_redirect_url": p.FailureURL,
		"invoice_duration":     int(p.Duration.Seconds()),
	}
	if p.PayerEmail != "" {
		body["payer_email"] = p.PayerEmail
	}
	if p.PaymentMethod != "" && p.PaymentMethod != models.PaymentMethodCash {
		body["payment_methods"] = []string{string(p.PaymentMethod)}
	}

	var inv Invoice
	var code int
	err := gout.POST(g.baseURL + "/v2/invoices").
		WithContext(ctx).
		SetTimeout(GatewayTimeout).
		SetHeader(gout.H{"Authorization": g.authHeader()}).
		SetJSON(body).
		BindJSON(&inv).
		Code(&code).
		Do()
	if err != nil {
		return nil, fmt.Errorf("gateway create invoice: %w", err)
	}
	if code < 200 || code >= 300 {
		return nil, fmt.Errorf("gateway create invoice: unexpected status %d", code)
	}
	if inv.ID == "" || inv.InvoiceURL == "" {
		return nil, fmt.Errorf("gateway create invoice: incomplete response")
	}
	return &inv, nil
}

func (g *HTTPGateway) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	var inv Invoice
	var code int
	err := gout.GET(g.baseURL + "/v2/invoices/" + id).
		WithContext(ctx).
		SetTimeout(GatewayTimeout).
		SetHeader(gout.H{"Authorization": g.authHeader()}).
		BindJSON(&inv).
		Code(&code).
		Do()
	if err != nil {
		return nil, fmt.Errorf("gateway get invoice: %w", err)
	}
	if code == 404 {
		return nil, fmt.Errorf("gateway get invoice: invoice %s not found", id)
	}
	if code < 200 || code >= 300 {
		return nil, fmt.Errorf("gateway get invoice: unexpected status %d", code)
	}
	return &inv, nil
}
