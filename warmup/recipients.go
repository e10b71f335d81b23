package warmup

import (
	"time"

	"warmbox/models"
)

// recentContactWindow is how long a recipient stays "recently contacted"
// after receiving a warmup email from a given sender.
const recentContactWindow = 7 * 24 * time.Hour

// SelectRecipients picks up to count recipient accounts for a sender.
// Accounts that have not received mail from the sender within the last week
// are preferred; if too few exist the remainder is drawn from the full pool
// of active, verified accounts. The sender itself is never selected and no
// account is selected twice. Fewer than count recipients is not an error.
func (e *Engine) SelectRecipients(senderID uint, count int) ([]models.EmailAccount, error) {
	if count <= 0 {
		return nil, nil
	}

	since := e.Clock.Now().UTC().Add(-recentContactWindow)
	recent, err := e.Store.RecentRecipientIDs(senderID, since)
	if err != nil {
		return nil, err
	}

	recipients, err := e.Store.SampleCandidates(senderID, recent, count)
	if err != nil {
		return nil, err
	}

	if len(recipients) < count {
		chosen := make([]uint, 0, len(recipients))
		for _, r := range recipients {
			chosen = append(chosen, r.ID)
		}
		topUp, err := e.Store.SampleCandidates(senderID, chosen, count-len(recipients))
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, topUp...)
	}

	return recipients, nil
}
