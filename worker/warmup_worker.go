package worker

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"warmbox/config"
	"warmbox/utils"
	"warmbox/warmup"
)

// WarmupWorker drives the periodic warmup cycle. It wakes at every UTC hour
// boundary and runs a full cycle when the hour is a multiple of the configured
// interval, so a 6-hour interval fires at 00/06/12/18 UTC.
type WarmupWorker struct {
	Engine *warmup.Engine
	Hub    *Hub
	Logger *log.Logger
}

func NewWarmupWorker(engine *warmup.Engine, hub *Hub, logger *log.Logger) *WarmupWorker {
	return &WarmupWorker{
		Engine: engine,
		Hub:    hub,
		Logger: logger,
	}
}

func (ww *WarmupWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	ww.Logger.Println("Warmup worker started")

	for {
		now := time.Now().UTC()
		if now.Hour()%ww.intervalHours() == 0 {
			ww.runCycle()
		}

		// Sleep until the next hour boundary
		next := now.Truncate(time.Hour).Add(time.Hour)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			ww.Logger.Println("Warmup worker shutting down...")
			return
		case <-timer.C:
		}
	}
}

func (ww *WarmupWorker) intervalHours() int {
	interval := config.AppConfig.CycleIntervalHours
	if interval < 1 {
		interval = 6
	}
	return interval
}

func (ww *WarmupWorker) runCycle() {
	ww.Logger.Println("Running scheduled warmup cycle")

	result := ww.Engine.RunCycle()

	ww.Logger.Printf("Warmup cycle completed: %d accounts processed, %d emails sent",
		result.AccountsProcessed, result.TotalEmailsSent)
	if len(result.Errors) > 0 {
		utils.LogError("warmup_cycle_failed", errors.New(strings.Join(result.Errors, "; ")), map[string]interface{}{
			"accounts_processed": result.AccountsProcessed,
		})
	}
	for _, account := range result.AccountResults {
		if len(account.Errors) > 0 {
			utils.LogError("warmup_account_cycle_failed", errors.New(strings.Join(account.Errors, "; ")), map[string]interface{}{
				"email_account_id": account.EmailAccountID,
				"email_address":    account.EmailAddress,
			})
		}
	}

	if ww.Hub != nil {
		ww.Hub.Publish(result)
	}
}
