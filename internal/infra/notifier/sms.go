// internal/infra/notifier/sms.go
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultSMSBaseURL = "https://api.twilio.com"

// SMSClient delivers plain-text SMS through a Twilio-style HTTP API.
// Like the email client, missing credentials turn every send into a
// successful no-op.
type SMSClient struct {
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	from       string
	limiter    *rate.Limiter
	logger     *logrus.Entry
}

func NewSMSClient(accountSID, authToken, from string, perSec float64, logger *logrus.Entry) *SMSClient {
	return &SMSClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultSMSBaseURL,
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		limiter:    rate.NewLimiter(rate.Limit(perSec), 1),
		logger:     logger,
	}
}

type smsResponse struct {
	SID string `json:"sid"`
}

// Send posts one SMS and returns the provider message sid.
func (c *SMSClient) Send(ctx context.Context, to, body string) (string, error) {
	if c.accountSID == "" {
		c.logger.WithField("to", to).Debug("SMS transport not configured; skipping send.")
		return "", nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("sms rate limiter: %w", err)
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build sms request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, string(body))
	}

	var out smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode sms response: %w", err)
	}
	return out.SID, nil
}
