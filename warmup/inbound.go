package warmup

import (
	"fmt"
	"time"

	"warmbox/models"
)

// ProcessIncoming runs one inbound pass for an account: it scans the inbox
// for warmup-tagged messages, rescues tagged messages from the provider's
// spam folders, marks known messages opened, replies probabilistically, and
// always replies to spam-flagged ledger messages. Spam-rescued mail gets an
// unconditional reply because engagement after a spam placement is believed
// to have an outsized effect on reputation repair.
func (e *Engine) ProcessIncoming(accountID uint) InboundResult {
	result := InboundResult{Success: true}

	account, err := e.Store.GetActiveAccount(accountID)
	if err != nil {
		return inboundFailure(fmt.Sprintf("failed to fetch email account: %v", err))
	}
	if account == nil {
		return inboundFailure("email account not found or not active/verified")
	}

	cfg, err := e.Store.GetActiveConfig(accountID)
	if err != nil {
		return inboundFailure(fmt.Sprintf("failed to fetch warmup config: %v", err))
	}
	if cfg == nil {
		return inboundFailure("warmup configuration not found or not active")
	}

	inbox, err := e.Transport.ScanInbox(account, TagMarker)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("inbox scan failed: %v", err))
	}

	rescued, err := e.Transport.RescueSpam(account, TagMarker)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("spam rescue failed: %v", err))
	}
	result.EmailsRescued = rescued
	result.EmailsInSpam = rescued

	for _, in := range inbox {
		result.EmailsProcessed++
		if err := e.processInboxMessage(account, cfg, in, &result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("error processing message %s: %v", in.MessageID, err))
		}
	}

	// Ledger pass: messages flagged in_spam that were never engaged get an
	// unconditional reply, regardless of the configured reply rate.
	flagged, err := e.Store.SpamFlaggedMessages(accountID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to scan spam-flagged ledger: %v", err))
	}
	for i := range flagged {
		msg := &flagged[i]
		result.EmailsInSpam++

		now := e.Clock.Now().UTC()
		e.markOpened(msg, now)
		replied, err := e.sendReply(account, cfg, msg)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to reply to spam-flagged message %s: %v", msg.MessageID, err))
		}
		if replied {
			result.EmailsRepliedTo++
		}
		if !replied {
			if err := e.Store.SaveMessage(msg); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to save message %s: %v", msg.MessageID, err))
			}
		}
	}

	if _, err := e.RecomputeStats(accountID, e.Clock.Now().UTC()); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to recompute stats: %v", err))
	}

	return result
}

func (e *Engine) processInboxMessage(account *models.EmailAccount, cfg *models.WarmupConfig, in InboundMessage, result *InboundResult) error {
	msg, err := e.Store.FindMessageForRecipient(in.MessageID, account.ID)
	if err != nil {
		return err
	}

	if msg == nil {
		// Inbound warmup mail we never sent: record it so stats see it, but
		// only when the subject carries the strict tag form.
		if !IsWarmupSubject(in.Subject) {
			return nil
		}
		now := e.Clock.Now().UTC()
		recipientID := account.ID
		return e.Store.CreateMessage(&models.WarmupMessage{
			MessageID:   in.MessageID,
			RecipientID: &recipientID,
			Subject:     in.Subject,
			Body:        in.Body,
			Status:      models.MessageStatusOpened,
			OpenedAt:    &now,
			DeliveredAt: &now,
			InSpam:      false,
		})
	}

	now := e.Clock.Now().UTC()
	e.markOpened(msg, now)

	shouldReply := e.Rand.Float64()*100 <= cfg.TargetReplyRate
	if shouldReply && !msg.IsReply {
		replied, err := e.sendReply(account, cfg, msg)
		if err != nil {
			if saveErr := e.Store.SaveMessage(msg); saveErr != nil {
				return saveErr
			}
			return err
		}
		if replied {
			result.EmailsRepliedTo++
			return nil
		}
	}

	return e.Store.SaveMessage(msg)
}

// markOpened moves a message to opened without ever moving it backwards.
func (e *Engine) markOpened(msg *models.WarmupMessage, now time.Time) {
	if msg.Status == models.MessageStatusSent || msg.Status == models.MessageStatusDelivered {
		msg.Status = models.MessageStatusOpened
		if msg.OpenedAt == nil {
			t := now
			msg.OpenedAt = &t
		}
	}
}

// sendReply answers the original message after a simulated reading delay and
// records both the reply and the original's transition to replied. It returns
// false without error when the original sender is not one of our accounts.
func (e *Engine) sendReply(account *models.EmailAccount, cfg *models.WarmupConfig, original *models.WarmupMessage) (bool, error) {
	if original.SenderID == nil {
		return false, nil
	}
	sender, err := e.Store.GetAccount(*original.SenderID)
	if err != nil {
		return false, err
	}
	if sender == nil {
		return false, nil
	}

	e.Clock.Sleep(e.readDelay(cfg))

	content := GenerateContent(e.Rand, NewTagID(), true, original.Subject, original.Body)
	messageID, err := e.Transport.Send(account, sender.EmailAddress, content.Subject, content.BodyHTML, content.BodyText)
	if err != nil {
		return false, err
	}

	now := e.Clock.Now().UTC()
	original.Status = models.MessageStatusReplied
	if original.RepliedAt == nil {
		t := now
		original.RepliedAt = &t
	}
	if err := e.Store.SaveMessage(original); err != nil {
		return false, err
	}

	accountID := account.ID
	reply := &models.WarmupMessage{
		MessageID:   messageID,
		SenderID:    &accountID,
		RecipientID: original.SenderID,
		Subject:     content.Subject,
		Body:        content.BodyHTML,
		Status:      models.MessageStatusSent,
		IsReply:     true,
		SentAt:      &now,
	}
	if err := e.Store.CreateMessage(reply); err != nil {
		return false, err
	}

	return true, nil
}

// readDelay simulates the time a human takes to read a message before
// answering it: uniform between 30 seconds and the configured ceiling.
func (e *Engine) readDelay(cfg *models.WarmupConfig) time.Duration {
	const floor = 30
	ceiling := cfg.ReadDelaySeconds
	if ceiling < floor {
		ceiling = floor
	}
	seconds := floor
	if span := ceiling - floor; span > 0 {
		seconds = floor + e.Rand.Intn(span+1)
	}
	return time.Duration(seconds) * time.Second
}

func inboundFailure(msg string) InboundResult {
	return InboundResult{Success: false, Errors: []string{msg}}
}
