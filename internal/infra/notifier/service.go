// internal/infra/notifier/service.go
package notifier

import (
	"context"

	"compliance_notifier/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Service bundles the email and SMS transports behind the domain
// Notifier interface.
type Service struct {
	email *EmailClient
	sms   *SMSClient
}

func NewService(cfg *config.AppConfig, logger *logrus.Entry) *Service {
	return &Service{
		email: NewEmailClient(cfg.ResendAPIKey, cfg.EmailFrom, cfg.EmailRatePerSec, logger),
		sms:   NewSMSClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.SMSRatePerSec, logger),
	}
}

func (s *Service) SendEmail(ctx context.Context, to, subject, html string) (string, error) {
	return s.email.Send(ctx, to, subject, html)
}

func (s *Service) SendSMS(ctx context.Context, to, body string) (string, error) {
	return s.sms.Send(ctx, to, body)
}
