package twilio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/relaycore/agentcore/internal/platform/envutil"
	"github.com/relaycore/agentcore/internal/platform/httpx"
	"github.com/relaycore/agentcore/internal/platform/logger"
)

type Client interface {
	SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error)
	SendSMS(ctx context.Context, to string, body string) (*Message, error)
	ListMessages(ctx context.Context, limit int) ([]Message, error)
	MakeCall(ctx context.Context, to, from, callbackURL string) (*Call, error)
	ListCalls(ctx context.Context, limit int) ([]Call, error)
}

type Config struct {
	AccountSID											string
	AuthToken												string
	APIKey													string
	APIKeySecret										string
	BaseURL													string
	DefaultFrom											string
	DefaultMessagingServiceSID			string
	DefaultStatusCallbackURL				string
	Timeout													time.Duration
	MaxRetries											int
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("TWILIO_TIMEOUT_SECONDS", 30)
	maxRetries := envutil.Int("TWILIO_MAX_RETRIES", 4)

	return Config{
		AccountSID:									strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
		AuthToken:									strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
		APIKey:											strings.TrimSpace(os.Getenv("TWILIO_API_KEY")),
		APIKeySecret:								strings.TrimSpace(os.Getenv("TWILIO_API_KEY_SECRET")),
		BaseURL:										strings.TrimSpace(os.Getenv("TWILIO_BASE_URL")),
		DefaultFrom:								strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER")),
		DefaultMessagingServiceSID: strings.TrimSpace(os.Getenv("TWILIO_MESSAGING_SERVICE_SID")),
		DefaultStatusCallbackURL:		strings.TrimSpace(os.Getenv("TWILIO_STAUTS_CALLBACK_URL")),
		Timeout:										time.Duration(timeoutSec) * time.Second,
		MaxRetries:									maxRetries,
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	cfg.AccountSID = strings.TrimSpace(cfg.AccountSID)
	if cfg.AccountSID == "" {
		return nil, fmt.Errorf("missing TWILIO_ACCOUNT_SID")
	}

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.APIKeySecret = strings.TrimSpace(cfg.APIKeySecret)
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	if cfg.APIKey != "" {
		if cfg.APIKeySecret == "" {
			return nil, fmt.Errorf("missing TWILIO_API_KEY_SECRET (required when TWILIO_API_KEY is set)")
		}
	} else {
		if cfg.AuthToken == "" {
			return nil, fmt.Errorf("missing TWILIO_AUTH_TOKEN (or provide TWILIO_API_KEY + TWILIO_API_KEY_SECRET)")
		}
	}

	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.twilio.com/2010-04-01"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 4
	}

	return &client{
		log:				log.With("client", "TwilioClient"),
		cfg:				cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
	}, nil
}

type client struct {
	log						*logger.Logger
	cfg						Config
	httpClient		*http.Client
	maxRetries		int
}

type SendMessageRequest struct {
	To										string
	From									string
	MessagingServiceSID		string
	Body									string
	MediaURLs							[]string
	ContentSID						string
	StatusCallbackURL			string
	ApplicationSID				string
	ProvideFeedback				*bool
	ValidityPeriodSec			int
}

type Message struct {
	SID										string								`json:"sid,omitempty"`
	AccountSID						string								`json:"account_sid,omitempty"`
	To										string								`json:"to,omitempty"`
	From									string								`json:"from,omitempty"`
	Body									string								`json:"body,omitempty"`
	MessagingServiceSID		string								`json:"messaging_service_sid,omitempty"`
	Status								string								`json:"status,omitempty"`
	NumSegments						string								`json:"num_segments,omitempty"`
	ErrorCode							*int									`json:"error_code,omitempty"`
	ErrorMessage					*string								`json:"error_message,omitempty"`
	DateCreated						string								`json:"date_created,omitempty"`
	DateSent							string								`json:"date_sent,omitempty"`
	URI										string								`json:"uri,omitempty"`
}

func (c *client) SendSMS(ctx context.Context, to string, body string) (*Message, error) {
	return c.SendMessage(ctx, SendMessageRequest{
		To:		to,
		Body:	body,
	})
}

func (c *client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("twilio client unavailable")
	}

	req.To = strings.TrimSpace(req.To)
	req.From = strings.TrimSpace(req.From)
	req.MessagingServiceSID = strings.TrimSpace(req.MessagingServiceSID)
	req.Body = strings.TrimSpace(req.Body)
	req.ContentSID = strings.TrimSpace(req.ContentSID)
	req.StatusCallbackURL = strings.TrimSpace(req.StatusCallbackURL)
	req.ApplicationSID = strings.TrimSpace(req.ApplicationSID)

	if req.To == "" {
		return nil, fmt.Errorf("twilio: To required")
	}

	if req.From == "" {
		req.From = strings.TrimSpace(c.cfg.DefaultFrom)
	}
	if req.MessagingServiceSID == "" {
		req.MessagingServiceSID = strings.TrimSpace(c.cfg.DefaultMessagingServiceSID)
	}
	if req.StatusCallbackURL == "" {
		req.StatusCallbackURL = strings.TrimSpace(c.cfg.DefaultStatusCallbackURL)
	}

	if req.From == "" && req.MessagingServiceSID == "" {
		return nil, fmt.Errorf("twilio: sender required (From or MessagingServiceSID)")
	}

	hasMedia := false
	for _, u := range req.MediaURLs {
		if strings.TrimSpace(u) != "" {
			hasMedia = true
			break
		}
	}
	if req.Body == "" && !hasMedia && req.ContentSID == "" {
		return nil, fmt.Errorf("twilio: content required (Body, MediaURLs, or ContentSID)")
	}

	form := url.Values{}
	form.Set("To", req.To)
	if req.From != "" {
		form.Set("From", req.From)
	}
	if req.MessagingServiceSID != "" {
		form.Set("MessagingServiceSid", req.MessagingServiceSID)
	}
	if req.Body != "" {
		form.Set("Body", req.Body)
	}
	for _, mu := range req.MediaURLs {
		mu = strings.TrimSpace(mu)
		if mu == "" {
			continue
		}
		form.Add("MediaUrl", mu)
	}
	if req.ContentSID != "" {
		form.Set("ContentSid", req.ContentSID)
	}
	if req.StatusCallbackURL != "" {
		form.Set("StatusCallback", req.StatusCallbackURL)
	}
	if req.ApplicationSID != "" {
		form.Set("ApplicationSid", req.ApplicationSID)
	}
	if req.ProvideFeedback != nil {
		form.Set("ProvideFeedback", strconv.FormatBool(*req.ProvideFeedback))
	}
	if req.ValidityPeriodSec > 0 {
		form.Set("ValidityPeriod", strconv.Itoa(req.ValidityPeriodSec))
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID)
	return doForm[Message](c, ctx, "POST", endpoint, form)
}

type messageListResponse struct {
	Messages []Message `json:"messages"`
}

// ListMessages implements sms_list: the most recent messages on the
// account, newest first (spec.md §4.5).
func (c *client) ListMessages(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json?PageSize=%d", c.cfg.BaseURL, c.cfg.AccountSID, limit)
	out, err := doGet[messageListResponse](c, ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return out.Messages, nil
}

type Call struct {
	SID       string `json:"sid,omitempty"`
	To        string `json:"to,omitempty"`
	From      string `json:"from,omitempty"`
	Status    string `json:"status,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

type callListResponse struct {
	Calls []Call `json:"calls"`
}

// MakeCall implements call_make: places a voice call with TwiML fetched
// from callbackURL (spec.md §4.5).
func (c *client) MakeCall(ctx context.Context, to, from, callbackURL string) (*Call, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, fmt.Errorf("twilio: To required")
	}
	if from = strings.TrimSpace(from); from == "" {
		from = strings.TrimSpace(c.cfg.DefaultFrom)
	}
	if from == "" {
		return nil, fmt.Errorf("twilio: From required")
	}
	if strings.TrimSpace(callbackURL) == "" {
		return nil, fmt.Errorf("twilio: Url (TwiML source) required")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Url", callbackURL)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.cfg.BaseURL, c.cfg.AccountSID)
	return doForm[Call](c, ctx, "POST", endpoint, form)
}

// ListCalls implements call_list: the most recent calls on the account.
func (c *client) ListCalls(ctx context.Context, limit int) ([]Call, error) {
	if limit <= 0 {
		limit = 20
	}
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json?PageSize=%d", c.cfg.BaseURL, c.cfg.AccountSID, limit)
	out, err := doGet[callListResponse](c, ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return out.Calls, nil
}

// ---------- HTTP / retry helpers ----------

type apiError struct {
	Code				int					`json:"code"`
	Message			string			`json:"message"`
	MoreInfo		string			`json:"more_info"`
	Status			int					`json:"status"`
}

type HTTPError struct {
	StatusCode	int
	Body				string
	APIError		*apiError
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "twilio: <nil error>"
	}
	if e.APIError != nil && strings.TrimSpace(e.APIError.Message) != "" {
		if e.APIError.Code != 0 {
			return fmt.Sprintf("twilio http %d: %s (code=%d)", e.StatusCode, e.APIError.Message, e.APIError.Code)
		}
		return fmt.Sprintf("twilio http %d: %s", e.StatusCode, e.APIError.Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 4000 {
		msg = msg[:4000] + "..."
	}
	return fmt.Sprintf("twilio http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) basicAuth() (user, pass string) {
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey, c.cfg.APIKeySecret
	}
	return c.cfg.AccountSID, c.cfg.AuthToken
}

func doGet[T any](c *client, ctx context.Context, urlStr string) (*T, error) {
	return doRequest[T](c, ctx, http.MethodGet, urlStr, nil)
}

func doForm[T any](c *client, ctx context.Context, method, urlStr string, form url.Values) (*T, error) {
	var encoded []byte
	if form != nil {
		encoded = []byte(form.Encode())
	}
	return doRequest[T](c, ctx, method, urlStr, encoded)
}

func doRequest[T any](c *client, ctx context.Context, method, urlStr string, body []byte) (*T, error) {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		out, resp, err := doOnce[T](c, ctx, method, urlStr, body)
		if err == nil {
			return out, nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return nil, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("Twilio request retrying",
			"url",					urlStr,
			"attempt",			attempt+1,
			"max_retries",	c.maxRetries,
			"sleep",				sleepFor.String(),
			"error",				err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return nil, fmt.Errorf("unreachable retry loop")
}

func doOnce[T any](c *client, ctx context.Context, method, urlStr string, body []byte) (*T, *http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, urlStr, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	u, p := c.basicAuth()
	req.SetBasicAuth(u, p)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && strings.TrimSpace(ae.Message) != "" {
			return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), APIError: &ae}
		}
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out T
	if len(raw) == 0 {
		return &out, resp, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp, fmt.Errorf("twilio decode error: %w; raw=%s", err, string(raw))
	}
	return &out, resp, nil
}
