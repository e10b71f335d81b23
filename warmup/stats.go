package warmup

import (
	"time"

	"warmbox/models"
)

// RecomputeStats rebuilds the WarmupStat row for one account and one UTC day
// from the message ledger. It is idempotent: rerunning it with an unchanged
// ledger produces the same row.
func (e *Engine) RecomputeStats(accountID uint, day time.Time) (*models.WarmupStat, error) {
	from := utcMidnight(day)
	to := from.Add(24*time.Hour - time.Nanosecond)

	sent, err := e.Store.CountSenderByStatus(accountID, []string{
		models.MessageStatusSent,
		models.MessageStatusDelivered,
		models.MessageStatusOpened,
		models.MessageStatusReplied,
	}, from, to)
	if err != nil {
		return nil, err
	}

	received, err := e.Store.CountReceivedByStatus(accountID, []string{
		models.MessageStatusDelivered,
		models.MessageStatusOpened,
		models.MessageStatusReplied,
	}, from, to)
	if err != nil {
		return nil, err
	}

	opened, err := e.Store.CountOpened(accountID, from, to)
	if err != nil {
		return nil, err
	}

	replied, err := e.Store.CountReplied(accountID, from, to)
	if err != nil {
		return nil, err
	}

	inSpam, err := e.Store.CountInSpam(accountID, from, to)
	if err != nil {
		return nil, err
	}

	var openRate, replyRate, spamRate float64
	if received > 0 {
		openRate = float64(opened) / float64(received) * 100
		replyRate = float64(replied) / float64(received) * 100
		spamRate = float64(inSpam) / float64(received) * 100
	}

	stat := &models.WarmupStat{
		EmailAccountID:      accountID,
		Date:                from,
		EmailsSent:          sent,
		EmailsReceived:      received,
		EmailsOpened:        opened,
		EmailsReplied:       replied,
		EmailsInSpam:        inSpam,
		OpenRate:            openRate,
		ReplyRate:           replyRate,
		SpamRate:            spamRate,
		DeliverabilityScore: 100 - spamRate,
	}

	if err := e.Store.UpsertStat(stat); err != nil {
		return nil, err
	}
	return stat, nil
}
