package warmup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCycle(t *testing.T) {
	store := newFakeStore()
	for id := uint(1); id <= 2; id++ {
		store.addAccount(poolAccount(id, addr(id)))
		cfg := poolConfig(id, testNow)
		cfg.RandomizeVolume = false
		cfg.CurrentDailyLimit = 1
		store.addConfig(cfg)
	}
	// A third account with no config never enters the cycle.
	store.addAccount(poolAccount(3, addr(3)))

	transport := newFakeTransport()
	engine, _ := newTestEngine(store, transport)

	result := engine.RunCycle()

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.AccountsProcessed)
	assert.Equal(t, 2, result.TotalEmailsSent)
	require.Len(t, result.AccountResults, 2)
	assert.False(t, result.StartedAt.IsZero())
	assert.False(t, result.FinishedAt.IsZero())

	for i, account := range result.AccountResults {
		assert.Equal(t, uint(i+1), account.EmailAccountID)
		assert.Equal(t, addr(uint(i+1)), account.EmailAddress)
		assert.Equal(t, 1, account.EmailsSent)
	}
}

func TestRunCycleProcessesInboundBeforeSending(t *testing.T) {
	store := newFakeStore()
	store.addAccount(poolAccount(1, addr(1)))
	store.addAccount(poolAccount(2, addr(2)))
	cfg := poolConfig(1, testNow)
	cfg.RandomizeVolume = false
	cfg.CurrentDailyLimit = 1
	store.addConfig(cfg)

	transport := newFakeTransport()
	engine, _ := newTestEngine(store, transport)

	engine.RunCycle()

	require.GreaterOrEqual(t, len(transport.ops), 3)
	assert.Equal(t, "scan:"+addr(1), transport.ops[0])
	assert.Equal(t, "rescue:"+addr(1), transport.ops[1])
	assert.Equal(t, "send:"+addr(1), transport.ops[2])
}

func TestRunCycleContinuesPastAccountFailures(t *testing.T) {
	store := newFakeStore()
	// Account 2 is unverified, so account 1 has no recipients and its send
	// pass fails; the cycle still finishes and reports the failure.
	store.addAccount(poolAccount(1, addr(1)))
	broken := poolAccount(2, addr(2))
	broken.IsVerified = false
	store.addAccount(broken)
	store.addConfig(poolConfig(1, testNow))
	store.addConfig(poolConfig(2, testNow))

	transport := newFakeTransport()
	engine, _ := newTestEngine(store, transport)

	result := engine.RunCycle()

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.AccountsProcessed)
	require.Len(t, result.AccountResults, 1)
	assert.NotEmpty(t, result.AccountResults[0].Errors)
	assert.Contains(t, result.AccountResults[0].Errors, "no recipient accounts available")
}

func TestRunCycleListFailure(t *testing.T) {
	store := newFakeStore()
	store.errs["ListWarmupAccounts"] = assert.AnError

	engine, _ := newTestEngine(store, newFakeTransport())

	result := engine.RunCycle()

	assert.False(t, result.Success)
	assert.Zero(t, result.AccountsProcessed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "failed to list warmup accounts")
}
