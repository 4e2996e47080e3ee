// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"html"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Email represents an email message.
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// Mailer represents an SMTP email sender.
type Mailer struct {
	config *Config
	dialer *gomail.Dialer
	logger *zerolog.Logger
}

// Config holds SMTP configuration for sending emails.
type Config struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

// LoadConfig reads SMTP settings from the environment.
func LoadConfig(logger *zerolog.Logger) Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse SMTP environment variables")
	}
	return cfg
}

// Configured reports whether enough settings exist to send mail.
func (c Config) Configured() bool {
	return c.Host != "" && c.From != ""
}

func (c Config) validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}
	return nil
}

// New creates a Mailer for cfg.
func New(cfg Config, logger *zerolog.Logger) *Mailer {
	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate Mailer configuration")
	}
	return &Mailer{
		config: &cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

// Send sends a single email.
func (m *Mailer) Send(email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)
	if email.HTMLBody != "" {
		msg.SetBody("text/html", email.HTMLBody)
		if email.Body != "" {
			msg.AddAlternative("text/plain", email.Body)
		}
	} else {
		msg.SetBody("text/plain", email.Body)
	}

	return m.dialer.DialAndSend(msg)
}

// SendOTP delivers a one-time code.
func (m *Mailer) SendOTP(ctx context.Context, to, code, purpose string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, text := otpCopy(purpose, code)
	err := m.Send(Email{
		To:       []string{to},
		Subject:  subject,
		Body:     text,
		HTMLBody: "<p>" + html.EscapeString(text) + "</p>",
	})
	if err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	m.logger.Debug().Str("to", to).Str("purpose", purpose).Msg("otp email sent")
	return nil
}

// LogSender stands in for SMTP when none is configured.  It writes the code
// to the log so local development can complete verification flows.
type LogSender struct {
	Logger *zerolog.Logger
}

// SendOTP logs the code at info level.
func (s LogSender) SendOTP(_ context.Context, to, code, purpose string) error {
	s.Logger.Info().Str("to", to).Str("purpose", purpose).Str("code", code).Msg("otp generated (smtp disabled)")
	return nil
}

func otpCopy(purpose, code string) (subject, body string) {
	switch purpose {
	case "password_reset":
		return "Reset your password", fmt.Sprintf("Your password reset code is %s. It expires in 10 minutes.", code)
	case "phone_verification":
		return "Verify your phone number", fmt.Sprintf("Your phone verification code is %s. It expires in 10 minutes.", code)
	default:
		return "Verify your email", fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
	}
}
