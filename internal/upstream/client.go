// Package upstream is the HTTP client of the ticketing backend. It owns
// timeouts, retries for idempotent reads, bearer propagation and the mapping
// of failure statuses onto user-facing messages; payload interpretation is
// left to the normalizer and the auth bridge.
package upstream

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ncastellanos/eventgate/internal/observability"
	"github.com/ncastellanos/eventgate/internal/registration"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxGetAttempts = 3

type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
	prom    *observability.Prom
}

// New builds a client for the configured API base URL. prom may be nil in
// tests; timeout bounds every single attempt.
func New(baseURL string, timeout time.Duration, log *slog.Logger, prom *observability.Prom) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
		prom:    prom,
	}
}

// ListQuery carries the filters the gateway forwards to the upstream catalog
// endpoint. The upstream may or may not honor them; the catalog engine
// re-applies everything over the normalized snapshot regardless.
type ListQuery struct {
	PageNumber  int
	PageSize    int
	CategoryID  string
	Search      string
	DateFrom    string
	DateTo      string
	PriceMin    *float64
	PriceMax    *float64
	IsPublished *bool
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	v.Set("PageNumber", strconv.Itoa(q.PageNumber))
	v.Set("PageSize", strconv.Itoa(q.PageSize))

	if q.CategoryID != "" {
		v.Set("categoryId", q.CategoryID)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.DateFrom != "" {
		v.Set("dateFrom", q.DateFrom)
	}
	if q.DateTo != "" {
		v.Set("dateTo", q.DateTo)
	}
	if q.PriceMin != nil {
		v.Set("priceMin", strconv.FormatFloat(*q.PriceMin, 'f', -1, 64))
	}
	if q.PriceMax != nil {
		v.Set("priceMax", strconv.FormatFloat(*q.PriceMax, 'f', -1, 64))
	}
	if q.IsPublished != nil {
		v.Set("isPublished", strconv.FormatBool(*q.IsPublished))
	}

	return v
}

// FetchEvents returns the raw catalog payload; shape detection is the
// normalizer's job.
func (c *Client) FetchEvents(ctx context.Context, q ListQuery) ([]byte, error) {
	return c.get(ctx, "list_events", "/Public/event?"+q.values().Encode())
}

func (c *Client) FetchEvent(ctx context.Context, id string) ([]byte, error) {
	return c.get(ctx, "get_event", "/Public/event/"+url.PathEscape(id))
}

func (c *Client) FetchCategories(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "list_categories", "/Public/categories")
}

// Auth endpoints. Non-2xx comes back as *StatusError with the raw body
// attached so the bridge can map the server's error code.

func (c *Client) Login(ctx context.Context, email, password string) ([]byte, error) {
	return c.postJSON(ctx, "login", "/Auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
}

func (c *Client) RegisterUser(ctx context.Context, payload any) ([]byte, error) {
	return c.postJSON(ctx, "register_user", "/Auth/register", payload, "")
}

func (c *Client) VerifyEmail(ctx context.Context, email, code string) ([]byte, error) {
	return c.postJSON(ctx, "verify_email", "/Auth/verify-email", map[string]string{
		"email": email,
		"code":  code,
	}, "")
}

func (c *Client) ResendVerification(ctx context.Context, email string) ([]byte, error) {
	return c.postJSON(ctx, "resend_verification", "/Auth/resend-verification", map[string]string{
		"email": email,
	}, "")
}

func (c *Client) CreateEvent(ctx context.Context, token string, payload any) ([]byte, error) {
	return c.postJSON(ctx, "create_event", "/Organizer/event", payload, token)
}

// Registrations adapts the client to the reconciler's remote interface.
type Registrations struct {
	c *Client
}

func (c *Client) Registrations() *Registrations {
	return &Registrations{c: c}
}

func (r *Registrations) CheckRegistration(ctx context.Context, token, eventID string) (bool, error) {
	body, err := r.c.getAuth(ctx, "check_registration", "/UserActions/inscriptions/"+url.PathEscape(eventID), token)
	if err != nil {
		return false, err
	}

	var out struct {
		Registered bool `json:"registered"`
	}
	if jsonErr := json.Unmarshal(body, &out); jsonErr != nil {
		// some deployments answer with a bare boolean
		var b bool
		if json.Unmarshal(body, &b) == nil {
			return b, nil
		}
		return false, wrapTransport("check_registration", jsonErr)
	}

	return out.Registered, nil
}

// Register posts the event id as a raw JSON string body, the shape the
// inscribe endpoint expects. The success body is plain text.
func (r *Registrations) Register(ctx context.Context, token, eventID string) (registration.RegisterOutcome, error) {
	body, err := r.c.postJSON(ctx, "inscribe", "/UserActions/inscribe", eventID, token)
	if err != nil {
		return registration.RegisterOutcome{}, err
	}

	msg := strings.TrimSpace(strings.Trim(string(body), `"`))

	return registration.RegisterOutcome{
		RequiresApproval: strings.Contains(strings.ToLower(msg), "aprob"),
		Message:          msg,
	}, nil
}

func (r *Registrations) Unregister(ctx context.Context, token, eventID string) error {
	_, err := r.c.postJSON(ctx, "unsubscribe", "/UserActions/unsubscribe", eventID, token)
	return err
}

// get retries transient failures with backoff; only safe for idempotent
// reads. Mutations go through postJSON which never retries.
func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	return c.getAuth(ctx, op, path, "")
}

func (c *Client) getAuth(ctx context.Context, op, path, token string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < maxGetAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff(attempt - 1)):
			}
		}

		body, err := c.do(ctx, op, http.MethodGet, path, nil, token)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !retryable(err) {
			return nil, err
		}

		c.log.WarnContext(ctx, "upstream retry", "op", op, "attempt", attempt+1, "err", err)
	}

	return nil, lastErr
}

func (c *Client) postJSON(ctx context.Context, op, path string, payload any, token string) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, wrapTransport(op, err)
	}

	return c.do(ctx, op, http.MethodPost, path, raw, token)
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, token string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, wrapTransport(op, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	c.observe(op, res, start, err)

	if err != nil {
		return nil, wrapTransport(op, err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, wrapTransport(op, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, newStatusError(res.StatusCode, payload)
	}

	return payload, nil
}

func (c *Client) observe(op string, res *http.Response, start time.Time, err error) {
	if c.prom == nil {
		return
	}

	status := "transport_error"
	if res != nil {
		status = strconv.Itoa(res.StatusCode)
	}

	c.prom.UpstreamDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.prom.UpstreamErrors.WithLabelValues(op, "transport").Inc()
	case res.StatusCode >= 500:
		c.prom.UpstreamErrors.WithLabelValues(op, "server").Inc()
	case res.StatusCode >= 400:
		c.prom.UpstreamErrors.WithLabelValues(op, "client").Inc()
	}
}
