package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PixelCodeeee/arroyo-seco-backend/internal/checkout/application"
	"github.com/PixelCodeeee/arroyo-seco-backend/internal/checkout/domain"
)

// Client talks to the PayPal Orders v2 API: create an order, capture it after
// the payer approves, and read it back. Access tokens are fetched with the
// client-credentials grant and cached until shortly before expiry.
type Client struct {
	baseURL  string
	clientID string
	secret   string
	currency string
	httpc    *http.Client
	log      *slog.Logger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func New(baseURL, clientID, secret, currency string, log *slog.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		secret:   secret,
		currency: currency,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount   amount      `json:"amount"`
	Items    []orderItem `json:"items,omitempty"`
	Payments *struct {
		Captures []capture `json:"captures"`
	} `json:"payments,omitempty"`
}

type orderItem struct {
	Name       string `json:"name"`
	UnitAmount amount `json:"unit_amount"`
	Quantity   string `json:"quantity"`
}

type capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount amount `json:"amount"`
}

type orderResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
	Payer         struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

func (c *Client) CreateOrder(ctx context.Context, totalCents int64, items []domain.CartItem) (string, error) {
	value := formatCents(totalCents)
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]any{
				"currency_code": c.currency,
				"value":         value,
				"breakdown": map[string]any{
					"item_total": amount{CurrencyCode: c.currency, Value: value},
				},
			},
			"items": toOrderItems(items, c.currency),
		}},
		"application_context": map[string]any{
			"brand_name":          "Arroyo Seco",
			"landing_page":        "NO_PREFERENCE",
			"user_action":         "PAY_NOW",
			"shipping_preference": "NO_SHIPPING",
		},
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &resp); err != nil {
		return "", err
	}
	c.log.Info("paypal order created", "processor_order_id", resp.ID)
	return resp.ID, nil
}

func (c *Client) CaptureOrder(ctx context.Context, processorOrderID string) (application.CaptureResult, error) {
	var resp orderResponse
	path := "/v2/checkout/orders/" + url.PathEscape(processorOrderID) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, map[string]any{}, &resp); err != nil {
		return application.CaptureResult{}, err
	}

	result := application.CaptureResult{
		Status:     resp.Status,
		PayerEmail: resp.Payer.EmailAddress,
	}
	if len(resp.PurchaseUnits) > 0 && resp.PurchaseUnits[0].Payments != nil && len(resp.PurchaseUnits[0].Payments.Captures) > 0 {
		cpt := resp.PurchaseUnits[0].Payments.Captures[0]
		result.TransactionID = cpt.ID
		result.Currency = cpt.Amount.CurrencyCode
		cents, err := parseCents(cpt.Amount.Value)
		if err != nil {
			return application.CaptureResult{}, fmt.Errorf("parse captured amount: %w", err)
		}
		result.AmountCents = cents
	}
	c.log.Info("paypal order captured", "processor_order_id", processorOrderID, "status", result.Status)
	return result, nil
}

func (c *Client) GetOrder(ctx context.Context, processorOrderID string) (application.ProcessorOrder, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(processorOrderID), nil)
	if err != nil {
		return application.ProcessorOrder{}, err
	}
	res, err := c.httpc.Do(req)
	if err != nil {
		return application.ProcessorOrder{}, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return application.ProcessorOrder{}, err
	}
	if res.StatusCode >= 400 {
		return application.ProcessorOrder{}, fmt.Errorf("paypal get order: status %d: %s", res.StatusCode, raw)
	}

	var resp orderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return application.ProcessorOrder{}, err
	}
	return application.ProcessorOrder{ID: resp.ID, Status: resp.Status, Raw: raw}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		raw, _ := io.ReadAll(res.Body)
		return fmt.Errorf("paypal %s %s: status %d: %s", method, path, res.StatusCode, raw)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", form)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		raw, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("paypal token: status %d: %s", res.StatusCode, raw)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&tok); err != nil {
		return "", err
	}
	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func toOrderItems(items []domain.CartItem, currency string) []orderItem {
	out := make([]orderItem, 0, len(items))
	for _, it := range items {
		name := it.Name
		if len(name) > 127 {
			name = name[:127]
		}
		out = append(out, orderItem{
			Name:       name,
			UnitAmount: amount{CurrencyCode: currency, Value: formatCents(it.UnitPriceCents)},
			Quantity:   strconv.Itoa(it.Quantity),
		})
	}
	return out
}

// formatCents renders cents as the "12.34" decimal string the API expects.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// parseCents reads a decimal money string into cents, rejecting more than
// two fractional digits rather than rounding silently.
func parseCents(value string) (int64, error) {
	whole, frac, found := strings.Cut(value, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q", value)
	}
	if !found {
		return units * 100, nil
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("bad amount %q", value)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	centPart, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q", value)
	}
	if units < 0 || strings.HasPrefix(whole, "-") {
		return units*100 - centPart, nil
	}
	return units*100 + centPart, nil
}
