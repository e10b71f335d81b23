package warmup

import (
	"fmt"
)

// RunCycle processes every active, verified account that has an active
// warmup config: inbound first, then the send pass. Accounts are handled
// sequentially; one account's failure is recorded and does not stop the
// others.
func (e *Engine) RunCycle() CycleResult {
	result := CycleResult{Success: true, StartedAt: e.Clock.Now().UTC()}

	accounts, err := e.Store.ListWarmupAccounts()
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to list warmup accounts: %v", err))
		result.FinishedAt = e.Clock.Now().UTC()
		return result
	}

	for _, account := range accounts {
		if e.Logger != nil {
			e.Logger.Printf("Processing warmup cycle for %s", account.EmailAddress)
		}

		inbound := e.ProcessIncoming(account.ID)
		send := e.SendWarmupEmails(account.ID)

		accountResult := AccountResult{
			EmailAccountID:  account.ID,
			EmailAddress:    account.EmailAddress,
			EmailsProcessed: inbound.EmailsProcessed,
			EmailsInSpam:    inbound.EmailsInSpam,
			EmailsSent:      send.EmailsSent,
		}
		accountResult.Errors = append(accountResult.Errors, inbound.Errors...)
		accountResult.Errors = append(accountResult.Errors, send.Errors...)

		result.AccountsProcessed++
		result.TotalEmailsSent += send.EmailsSent
		result.AccountResults = append(result.AccountResults, accountResult)
	}

	result.FinishedAt = e.Clock.Now().UTC()
	return result
}
