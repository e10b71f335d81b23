// Package mailer moves real mail for the warmup engine: SMTP sending with a
// STARTTLS fallback and IMAP scanning of inboxes and spam folders.
package mailer

import (
	"crypto/tls"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"warmbox/models"
	"warmbox/utils"
)

type Client struct {
	logger *log.Logger
}

func NewClient(logger *log.Logger) *Client {
	return &Client{logger: logger}
}

// Send delivers one warmup email through the sender's own SMTP server and
// returns the generated Message-ID (without angle brackets). When the
// configured port rejects the connection it retries with STARTTLS on 587,
// which is the usual fix for providers that moved off implicit TLS.
func (c *Client) Send(sender *models.EmailAccount, to, subject, bodyHTML, bodyText string) (string, error) {
	password, err := utils.Decrypt(sender.SMTPPassword)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt SMTP password: %v", err)
	}

	domain := sender.Domain
	if domain == "" {
		domain = utils.DomainFromEmail(sender.EmailAddress)
	}
	messageID := fmt.Sprintf("%s@%s", uuid.NewString(), domain)

	from := sender.EmailAddress
	if sender.DisplayName != "" {
		from = fmt.Sprintf("%s <%s>", sender.DisplayName, sender.EmailAddress)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s>", messageID))
	m.SetHeader("X-Mailer", "Warmbox/1.0")
	m.SetHeader("X-Priority", "3")
	m.SetHeader("Auto-Submitted", "auto-generated")
	m.SetBody("text/plain", bodyText)
	m.AddAlternative("text/html", bodyHTML)

	dialer := gomail.NewDialer(sender.SMTPHost, sender.SMTPPort, sender.SMTPUsername, password)
	dialer.TLSConfig = &tls.Config{ServerName: sender.SMTPHost}

	sendErr := dialer.DialAndSend(m)
	if sendErr == nil {
		return messageID, nil
	}

	if sender.SMTPPort != 587 {
		c.logger.Printf("MAILER: send via port %d failed for %s, retrying with STARTTLS on 587: %v",
			sender.SMTPPort, sender.EmailAddress, sendErr)

		fallback := gomail.NewDialer(sender.SMTPHost, 587, sender.SMTPUsername, password)
		fallback.TLSConfig = &tls.Config{ServerName: sender.SMTPHost}
		if err := fallback.DialAndSend(m); err != nil {
			return "", fmt.Errorf("failed to send email: %v (starttls fallback: %v)", sendErr, err)
		}
		return messageID, nil
	}

	return "", fmt.Errorf("failed to send email: %v", sendErr)
}

// VerifySMTPConnection checks that the account's SMTP credentials work,
// trying the configured port first and falling back to STARTTLS on 587.
func (c *Client) VerifySMTPConnection(account *models.EmailAccount) error {
	password, err := utils.Decrypt(account.SMTPPassword)
	if err != nil {
		return fmt.Errorf("failed to decrypt SMTP password: %v", err)
	}

	dialer := gomail.NewDialer(account.SMTPHost, account.SMTPPort, account.SMTPUsername, password)
	dialer.TLSConfig = &tls.Config{ServerName: account.SMTPHost}

	conn, dialErr := dialer.Dial()
	if dialErr == nil {
		return conn.Close()
	}

	if account.SMTPPort != 587 {
		fallback := gomail.NewDialer(account.SMTPHost, 587, account.SMTPUsername, password)
		fallback.TLSConfig = &tls.Config{ServerName: account.SMTPHost}
		conn, err := fallback.Dial()
		if err != nil {
			return fmt.Errorf("SMTP connection failed: %v (starttls fallback: %v)", dialErr, err)
		}
		return conn.Close()
	}

	return fmt.Errorf("SMTP connection failed: %v", dialErr)
}
