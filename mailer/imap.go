package mailer

import (
	"crypto/tls"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"warmbox/models"
	"warmbox/utils"
	"warmbox/warmup"
)

// Folder names checked during spam rescue. Providers disagree on naming, so
// each is tried and missing ones are skipped.
var spamFolders = []string{"[Gmail]/Spam", "Spam", "Junk"}

func (c *Client) connectIMAP(account *models.EmailAccount) (*client.Client, error) {
	password, err := utils.Decrypt(account.IMAPPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt IMAP password: %v", err)
	}

	var imapClient *client.Client
	imapAddr := fmt.Sprintf("%s:%d", account.IMAPHost, account.IMAPPort)

	switch strings.ToUpper(account.IMAPEncryption) {
	case "SSL", "TLS":
		imapClient, err = client.DialTLS(imapAddr, &tls.Config{
			ServerName: account.IMAPHost,
		})
	case "STARTTLS":
		imapClient, err = client.Dial(imapAddr)
		if err == nil {
			err = imapClient.StartTLS(&tls.Config{
				ServerName: account.IMAPHost,
			})
		}
	default:
		imapClient, err = client.Dial(imapAddr)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %v", err)
	}

	if err := imapClient.Login(account.IMAPUsername, password); err != nil {
		imapClient.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %v", err)
	}

	return imapClient, nil
}

// ScanInbox returns unread inbox messages whose subject carries the warmup
// marker, and marks them read so the next scan does not see them again.
func (c *Client) ScanInbox(account *models.EmailAccount, marker string) ([]warmup.InboundMessage, error) {
	imapClient, err := c.connectIMAP(account)
	if err != nil {
		return nil, err
	}
	defer imapClient.Logout()

	if _, err := imapClient.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %v", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]")}, messages)
	}()

	var found []warmup.InboundMessage
	matched := new(imap.SeqSet)
	for msg := range messages {
		if msg.Envelope == nil || !strings.Contains(msg.Envelope.Subject, marker) {
			continue
		}

		found = append(found, warmup.InboundMessage{
			MessageID: strings.Trim(msg.Envelope.MessageId, "<>"),
			Subject:   msg.Envelope.Subject,
			From:      formatAddress(msg.Envelope.From),
			Body:      extractTextBody(msg),
			Date:      msg.Envelope.Date,
		})
		matched.AddNum(msg.SeqNum)
	}

	if err := <-done; err != nil {
		return found, fmt.Errorf("error during fetch: %v", err)
	}

	if !matched.Empty() {
		flagOp := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := imapClient.Store(matched, flagOp, []interface{}{imap.SeenFlag}, nil); err != nil {
			return found, fmt.Errorf("failed to mark messages read: %v", err)
		}
	}

	return found, nil
}

// RescueSpam moves warmup-tagged messages out of the provider's spam folders
// back to INBOX and returns how many were moved.
func (c *Client) RescueSpam(account *models.EmailAccount, marker string) (int, error) {
	imapClient, err := c.connectIMAP(account)
	if err != nil {
		return 0, err
	}
	defer imapClient.Logout()

	rescued := 0
	for _, folder := range spamFolders {
		if _, err := imapClient.Select(folder, false); err != nil {
			// Folder doesn't exist on this provider.
			continue
		}

		criteria := imap.NewSearchCriteria()
		criteria.Header.Add("Subject", marker)
		ids, err := imapClient.Search(criteria)
		if err != nil {
			c.logger.Printf("MAILER: search failed in %s for %s: %v", folder, account.EmailAddress, err)
			continue
		}
		if len(ids) == 0 {
			continue
		}

		seqset := new(imap.SeqSet)
		seqset.AddNum(ids...)

		if err := imapClient.Copy(seqset, "INBOX"); err != nil {
			c.logger.Printf("MAILER: failed to copy %d messages from %s to INBOX for %s: %v",
				len(ids), folder, account.EmailAddress, err)
			continue
		}

		flagOp := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := imapClient.Store(seqset, flagOp, []interface{}{imap.DeletedFlag}, nil); err != nil {
			c.logger.Printf("MAILER: failed to flag rescued messages deleted in %s for %s: %v",
				folder, account.EmailAddress, err)
			continue
		}
		if err := imapClient.Expunge(nil); err != nil {
			c.logger.Printf("MAILER: failed to expunge %s for %s: %v", folder, account.EmailAddress, err)
		}

		rescued += len(ids)
	}

	return rescued, nil
}

// VerifyIMAPConnection checks that the account's IMAP credentials work and
// that INBOX is selectable.
func (c *Client) VerifyIMAPConnection(account *models.EmailAccount) error {
	imapClient, err := c.connectIMAP(account)
	if err != nil {
		return err
	}
	defer imapClient.Logout()

	if _, err := imapClient.Select("INBOX", true); err != nil {
		return fmt.Errorf("failed to select INBOX: %v", err)
	}
	return nil
}

func extractTextBody(msg *imap.Message) string {
	if msg.Body == nil {
		return ""
	}

	section := imap.BodySectionName{Peek: true}
	literal := msg.GetBody(&section)
	if literal == nil {
		return ""
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return ""
	}

	var bodyText, bodyHTML string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			break
		}

		if h, ok := p.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			if strings.Contains(contentType, "text/plain") {
				bodyText = string(b)
			} else if strings.Contains(contentType, "text/html") {
				bodyHTML = string(b)
			}
		}
	}

	if bodyText != "" {
		return bodyText
	}
	return bodyHTML
}

func formatAddress(addrs []*imap.Address) string {
	var result []string
	for _, addr := range addrs {
		if addr.PersonalName != "" {
			result = append(result, fmt.Sprintf("%s <%s>", addr.PersonalName, addr.MailboxName+"@"+addr.HostName))
		} else {
			result = append(result, fmt.Sprintf("%s@%s", addr.MailboxName, addr.HostName))
		}
	}
	return strings.Join(result, ", ")
}
