// internal/infra/notifier/email.go
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultEmailBaseURL = "https://api.resend.com"

// EmailClient delivers HTML email through a Resend-style HTTP API.
// With no API key configured every send is a successful no-op, so the
// scheduler still records its dedup markers instead of retrying the
// same items forever in an environment without credentials.
type EmailClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
	limiter    *rate.Limiter
	logger     *logrus.Entry
}

func NewEmailClient(apiKey, from string, perSec float64, logger *logrus.Entry) *EmailClient {
	return &EmailClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultEmailBaseURL,
		apiKey:     apiKey,
		from:       from,
		limiter:    rate.NewLimiter(rate.Limit(perSec), 1),
		logger:     logger,
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type emailResponse struct {
	ID string `json:"id"`
}

// Send posts one email and returns the provider message id.
func (c *EmailClient) Send(ctx context.Context, to, subject, html string) (string, error) {
	if c.apiKey == "" {
		c.logger.WithField("to", to).Debug("Email transport not configured; skipping send.")
		return "", nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("email rate limiter: %w", err)
	}

	payload, err := json.Marshal(emailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("email provider returned %d: %s", resp.StatusCode, string(body))
	}

	var out emailResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode email response: %w", err)
	}
	return out.ID, nil
}
