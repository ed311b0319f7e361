// Package mail sends plain text e-mails over SMTP.
package mail

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/QuizFox/internal/pkg/env"
)

var ErrNotConfigured = errors.New("mail: SMTP_HOST is not set")

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
}

func ConfigFromEnv() Config {
	cfg := Config{
		Host:     env.GetEnv("SMTP_HOST", ""),
		Port:     env.GetEnv("SMTP_PORT", "587"),
		Username: env.GetEnv("SMTP_USERNAME", ""),
		Password: env.GetEnv("SMTP_PASSWORD", ""),
		Sender:   env.GetEnv("SMTP_SENDER", ""),
	}
	if cfg.Sender == "" {
		cfg.Sender = "no-reply@localhost"
	}
	return cfg
}

// AdminEmail is the address that receives admin notifications, empty when
// admin mails are disabled.
func AdminEmail() string {
	return strings.TrimSpace(env.GetEnv("ADMIN_EMAIL", ""))
}

// SendMail sends one message using the SMTP settings from the environment.
func SendMail(to string, subject string, body string) error {
	return Send(ConfigFromEnv(), to, subject, body)
}

func Send(cfg Config, to, subject, body string) error {
	if cfg.Host == "" {
		return ErrNotConfigured
	}

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	err := smtp.SendMail(addr, auth, cfg.Sender, []string{to}, buildMessage(cfg.Sender, to, subject, body))
	if err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
		return err
	}
	log.Infof("[Mail] Email sent to %s via %s", to, addr)
	return nil
}

// buildMessage strips line breaks from header values so a subject cannot
// inject extra headers.
func buildMessage(from, to, subject, body string) []byte {
	clean := strings.NewReplacer("\r", "", "\n", "")
	return []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", clean.Replace(from), clean.Replace(to), clean.Replace(subject)) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
			body,
	)
}
