package warmup

import (
	"errors"
	"strings"
	"testing"
	"time"

	"warmbox/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedLedgerPair wires a sender and recipient account into the store along
// with an active config for the recipient, and returns the recipient's config
// for per-test tweaking.
func seedLedgerPair(store *fakeStore) *models.WarmupConfig {
	store.addAccount(poolAccount(1, addr(1)))
	store.addAccount(poolAccount(2, addr(2)))
	cfg := poolConfig(2, testNow)
	store.addConfig(cfg)
	return cfg
}

func TestProcessIncomingRepliesAtFullReplyRate(t *testing.T) {
	store := newFakeStore()
	cfg := seedLedgerPair(store)
	cfg.TargetReplyRate = 100

	var ids []uint
	for _, messageID := range []string{"m1@pool.test", "m2@pool.test"} {
		ids = append(ids, store.seedMessage(models.WarmupMessage{
			MessageID:   messageID,
			SenderID:    uintPtr(1),
			RecipientID: uintPtr(2),
			Subject:     "WARMUP-1a2b3c4d: Quick update",
			Body:        "<p>hello</p>",
			Status:      models.MessageStatusSent,
			SentAt:      timePtr(testNow.Add(-time.Hour)),
		}))
	}

	transport := newFakeTransport()
	transport.inbox = []InboundMessage{
		{MessageID: "m1@pool.test", Subject: "WARMUP-1a2b3c4d: Quick update", From: addr(1), Date: testNow},
		{MessageID: "m2@pool.test", Subject: "WARMUP-1a2b3c4d: Quick update", From: addr(1), Date: testNow},
	}
	engine, clock := newTestEngine(store, transport)
	engine.Rand = &scriptedRand{floats: []float64{0.5}}

	result := engine.ProcessIncoming(2)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.EmailsProcessed)
	assert.Equal(t, 2, result.EmailsRepliedTo)
	assert.Empty(t, result.Errors)

	// Originals moved to replied with a timestamp.
	for _, id := range ids {
		msg := store.message(id)
		require.NotNil(t, msg)
		assert.Equal(t, models.MessageStatusReplied, msg.Status)
		assert.NotNil(t, msg.RepliedAt)
	}

	// Each reply went back to the original sender and was recorded.
	require.Len(t, transport.sent, 2)
	replies := 0
	for i := range store.messages {
		m := &store.messages[i]
		if m.IsReply {
			replies++
			assert.Equal(t, uint(2), *m.SenderID)
			assert.Equal(t, uint(1), *m.RecipientID)
			assert.True(t, strings.HasPrefix(m.Subject, "Re: "))
			assert.Equal(t, models.MessageStatusSent, m.Status)
		}
	}
	assert.Equal(t, 2, replies)

	// A read delay was simulated before each reply.
	assert.Len(t, clock.sleeps, 2)
}

func TestProcessIncomingMarksOpenedWithoutReply(t *testing.T) {
	store := newFakeStore()
	cfg := seedLedgerPair(store)
	cfg.TargetReplyRate = 0

	id := store.seedMessage(models.WarmupMessage{
		MessageID:   "m1@pool.test",
		SenderID:    uintPtr(1),
		RecipientID: uintPtr(2),
		Subject:     "WARMUP-1a2b3c4d: Quick update",
		Status:      models.MessageStatusSent,
		SentAt:      timePtr(testNow.Add(-time.Hour)),
	})

	transport := newFakeTransport()
	transport.inbox = []InboundMessage{
		{MessageID: "m1@pool.test", Subject: "WARMUP-1a2b3c4d: Quick update", From: addr(1), Date: testNow},
	}
	engine, _ := newTestEngine(store, transport)
	engine.Rand = &scriptedRand{floats: []float64{0.5}}

	result := engine.ProcessIncoming(2)

	assert.Equal(t, 1, result.EmailsProcessed)
	assert.Equal(t, 0, result.EmailsRepliedTo)
	assert.Empty(t, transport.sent)

	msg := store.message(id)
	require.NotNil(t, msg)
	assert.Equal(t, models.MessageStatusOpened, msg.Status)
	assert.NotNil(t, msg.OpenedAt)
}

func TestProcessIncomingNeverRepliesToReplies(t *testing.T) {
	store := newFakeStore()
	cfg := seedLedgerPair(store)
	cfg.TargetReplyRate = 100

	store.seedMessage(models.WarmupMessage{
		MessageID:   "reply-1@pool.test",
		SenderID:    uintPtr(1),
		RecipientID: uintPtr(2),
		Subject:     "Re: WARMUP-1a2b3c4d: Quick update",
		IsReply:     true,
		Status:      models.MessageStatusSent,
		SentAt:      timePtr(testNow.Add(-time.Hour)),
	})

	transport := newFakeTransport()
	transport.inbox = []InboundMessage{
		{MessageID: "reply-1@pool.test", Subject: "Re: WARMUP-1a2b3c4d: Quick update", From: addr(1), Date: testNow},
	}
	engine, _ := newTestEngine(store, transport)
	engine.Rand = &scriptedRand{floats: []float64{0.5}}

	result := engine.ProcessIncoming(2)

	assert.Equal(t, 1, result.EmailsProcessed)
	assert.Equal(t, 0, result.EmailsRepliedTo)
	assert.Empty(t, transport.sent)
}

func TestProcessIncomingRepliesToSpamFlaggedUnconditionally(t *testing.T) {
	store := newFakeStore()
	cfg := seedLedgerPair(store)
	cfg.TargetReplyRate = 0 // the reply rate must not gate spam recovery

	id := store.seedMessage(models.WarmupMessage{
		MessageID:   "spam-1@pool.test",
		SenderID:    uintPtr(1),
		RecipientID: uintPtr(2),
		Subject:     "WARMUP-1a2b3c4d: Quick update",
		Body:        "<p>hello</p>",
		Status:      models.MessageStatusDelivered,
		InSpam:      true,
		SentAt:      timePtr(testNow.Add(-time.Hour)),
		DeliveredAt: timePtr(testNow.Add(-time.Hour)),
	})

	transport := newFakeTransport()
	transport.rescued = 3
	engine, _ := newTestEngine(store, transport)
	engine.Rand = &scriptedRand{floats: []float64{0.99}}

	result := engine.ProcessIncoming(2)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.EmailsRescued)
	assert.Equal(t, 4, result.EmailsInSpam) // 3 rescued this pass + 1 flagged in the ledger
	assert.Equal(t, 1, result.EmailsRepliedTo)

	msg := store.message(id)
	require.NotNil(t, msg)
	assert.Equal(t, models.MessageStatusReplied, msg.Status)
	assert.NotNil(t, msg.OpenedAt)
	assert.NotNil(t, msg.RepliedAt)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, addr(1), transport.sent[0].to)
}

func TestProcessIncomingRecordsUnknownWarmupMail(t *testing.T) {
	store := newFakeStore()
	seedLedgerPair(store)

	transport := newFakeTransport()
	transport.inbox = []InboundMessage{
		{MessageID: "external@other.test", Subject: "WARMUP-ffffffff: From another pool", From: "stranger@other.test", Body: "hi there", Date: testNow},
		{MessageID: "newsletter@other.test", Subject: "Weekly digest", From: "news@other.test", Date: testNow},
	}
	engine, _ := newTestEngine(store, transport)

	result := engine.ProcessIncoming(2)

	assert.Equal(t, 2, result.EmailsProcessed)
	assert.Empty(t, result.Errors)

	// Only the tagged message was recorded, as received-and-opened with no
	// known sender.
	require.Len(t, store.messages, 1)
	msg := &store.messages[0]
	assert.Equal(t, "external@other.test", msg.MessageID)
	assert.Nil(t, msg.SenderID)
	assert.Equal(t, uint(2), *msg.RecipientID)
	assert.Equal(t, "hi there", msg.Body)
	assert.Equal(t, models.MessageStatusOpened, msg.Status)
	assert.NotNil(t, msg.DeliveredAt)
	assert.NotNil(t, msg.OpenedAt)
}

func TestProcessIncomingScanFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	seedLedgerPair(store)

	transport := newFakeTransport()
	transport.scanErr = errors.New("imap: connection reset")
	transport.rescued = 1
	engine, _ := newTestEngine(store, transport)

	result := engine.ProcessIncoming(2)

	assert.True(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "inbox scan failed")

	// Spam rescue still ran.
	assert.Equal(t, 1, result.EmailsRescued)
}

func TestProcessIncomingRequiresEligibleAccount(t *testing.T) {
	engine, _ := newTestEngine(newFakeStore(), newFakeTransport())

	result := engine.ProcessIncoming(42)
	assert.False(t, result.Success)
	assert.Contains(t, result.Errors, "email account not found or not active/verified")
}

func TestMarkOpenedIsMonotonic(t *testing.T) {
	engine, _ := newTestEngine(newFakeStore(), newFakeTransport())

	opened := testNow.Add(-time.Hour)
	msg := &models.WarmupMessage{Status: models.MessageStatusReplied, OpenedAt: timePtr(opened)}
	engine.markOpened(msg, testNow)
	assert.Equal(t, models.MessageStatusReplied, msg.Status)
	assert.Equal(t, opened, *msg.OpenedAt)

	msg = &models.WarmupMessage{Status: models.MessageStatusDelivered}
	engine.markOpened(msg, testNow)
	assert.Equal(t, models.MessageStatusOpened, msg.Status)
	require.NotNil(t, msg.OpenedAt)
	assert.Equal(t, testNow, *msg.OpenedAt)
}
