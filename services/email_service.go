package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/aaroha-fest/sargam-portal/config"
)

type EmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

func (s *EmailService) SendEmail(to []string, subject string, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := []byte("To: " + to[0] + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	tlsconfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
	}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Implicit TLS.
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("smtp tls dial failed: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("smtp client creation failed: %w", err)
		}
	} else {
		// STARTTLS, usually port 587.
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial failed: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp STARTTLS failed: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}
	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO failed: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("smtp message write failed: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("smtp DATA close failed: %w", err)
	}

	return nil
}

var welcomeEmailTemplate = template.Must(template.New("welcome").Parse(`
<p>Hi {{.Name}},</p>
<p>Your account for {{.EventName}} has been created.</p>
<p>Head over to <a href="{{.DashboardLink}}">your dashboard</a> to register your band and complete the payment.</p>
`))

var passwordResetEmailTemplate = template.Must(template.New("reset").Parse(`
<p>Hi,</p>
<p>We received a request to reset the password for {{.Email}}.</p>
<p><a href="{{.ResetLink}}">Reset your password</a>. The link expires in one hour.</p>
<p>If you did not request this, you can safely ignore this email.</p>
`))

func (s *EmailService) SendWelcomeEmail(userEmail string, userName string) error {
	var body bytes.Buffer
	err := welcomeEmailTemplate.Execute(&body, struct {
		Name          string
		EventName     string
		DashboardLink string
	}{
		Name:          userName,
		EventName:     "AAROHA 2026 - Battle of Bands: SARGAM",
		DashboardLink: s.cfg.PublicURL + "/dashboard",
	})
	if err != nil {
		return fmt.Errorf("failed to render welcome email: %w", err)
	}
	return s.SendEmail([]string{userEmail}, "Welcome to SARGAM - Battle of Bands!", body.String())
}

func (s *EmailService) SendPasswordResetEmail(userEmail string, resetToken string) error {
	var body bytes.Buffer
	err := passwordResetEmailTemplate.Execute(&body, struct {
		Email     string
		ResetLink string
	}{
		Email:     userEmail,
		ResetLink: fmt.Sprintf("%s/reset-password?token=%s", s.cfg.PublicURL, resetToken),
	})
	if err != nil {
		return fmt.Errorf("failed to render password reset email: %w", err)
	}
	return s.SendEmail([]string{userEmail}, "Password reset for SARGAM", body.String())
}
