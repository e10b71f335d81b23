package warmup

import (
	"fmt"
	"time"

	"warmbox/models"
)

// SendWarmupEmails runs one send pass for an account: it advances the ramp,
// computes today's remaining quota, picks recipients and sends paced warmup
// emails, recording each successful send in the ledger. Transport failures
// are collected per recipient; the next scheduled cycle is the retry
// mechanism.
func (e *Engine) SendWarmupEmails(accountID uint) SendResult {
	result := SendResult{Success: true}

	account, err := e.Store.GetActiveAccount(accountID)
	if err != nil {
		return sendFailure(fmt.Sprintf("failed to fetch email account: %v", err))
	}
	if account == nil {
		return sendFailure("email account not found or not active/verified")
	}

	cfg, err := e.Store.GetActiveConfig(accountID)
	if err != nil {
		return sendFailure(fmt.Sprintf("failed to fetch warmup config: %v", err))
	}
	if cfg == nil {
		return sendFailure("warmup configuration not found or not active")
	}

	now := e.Clock.Now().UTC()

	if cfg.WeekdaysOnly && (now.Weekday() == time.Saturday || now.Weekday() == time.Sunday) {
		result.Skipped = "weekend day with weekdays_only enabled"
		return result
	}

	days := daysInWarmup(cfg.StartDate, now)

	if err := e.AdvanceDailyLimit(cfg, days); err != nil {
		return sendFailure(fmt.Sprintf("failed to advance daily limit: %v", err))
	}

	dailyTarget := e.DailyTarget(cfg)

	sentToday, err := e.Store.CountSentBetween(accountID, utcMidnight(now), now)
	if err != nil {
		return sendFailure(fmt.Sprintf("failed to count today's sends: %v", err))
	}

	toSend := dailyTarget - sentToday
	if toSend <= 0 {
		result.Skipped = fmt.Sprintf("daily target reached (%d)", dailyTarget)
		return result
	}

	// Stores that hand out send slots atomically close the concurrent-trigger
	// overshoot window; the plain gorm store does not implement this.
	if reserver, ok := e.Store.(SlotReserver); ok {
		granted, err := reserver.ReserveSendSlots(accountID, toSend)
		if err != nil {
			return sendFailure(fmt.Sprintf("failed to reserve send slots: %v", err))
		}
		if granted <= 0 {
			result.Skipped = fmt.Sprintf("daily target reached (%d)", dailyTarget)
			return result
		}
		toSend = granted
	}

	recipients, err := e.SelectRecipients(accountID, toSend)
	if err != nil {
		return sendFailure(fmt.Sprintf("failed to select recipients: %v", err))
	}
	if len(recipients) == 0 {
		return sendFailure("no recipient accounts available")
	}

	for _, recipient := range recipients {
		content := GenerateContent(e.Rand, NewTagID(), false, "", "")

		messageID, err := e.Transport.Send(account, recipient.EmailAddress, content.Subject, content.BodyHTML, content.BodyText)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to send to %s: %v", recipient.EmailAddress, err))
			continue
		}

		sentAt := e.Clock.Now().UTC()
		senderID := account.ID
		recipientID := recipient.ID
		msg := &models.WarmupMessage{
			MessageID:   messageID,
			SenderID:    &senderID,
			RecipientID: &recipientID,
			Subject:     content.Subject,
			Body:        content.BodyHTML,
			Status:      models.MessageStatusSent,
			SentAt:      &sentAt,
		}
		if err := e.Store.CreateMessage(msg); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to record message to %s: %v", recipient.EmailAddress, err))
			continue
		}

		result.EmailsSent++
		e.Clock.Sleep(e.sendDelay(cfg))
	}

	if _, err := e.RecomputeStats(accountID, now); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to recompute stats: %v", err))
	}

	return result
}

// sendDelay draws a uniform pacing delay from the configured window. The
// delay is a deliberate rate limiter: burst sending is what spam filters key
// on.
func (e *Engine) sendDelay(cfg *models.WarmupConfig) time.Duration {
	min := cfg.MinDelaySeconds
	max := cfg.MaxDelaySeconds
	if max < min {
		max = min
	}
	seconds := min
	if span := max - min; span > 0 {
		seconds = min + e.Rand.Intn(span+1)
	}
	return time.Duration(seconds) * time.Second
}

func sendFailure(msg string) SendResult {
	return SendResult{Success: false, Errors: []string{msg}}
}
