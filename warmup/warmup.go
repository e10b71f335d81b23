package warmup

import (
	"log"
	"math/rand"
	"time"

	"warmbox/models"
)

// Clock abstracts wall-clock time and pacing sleeps so that cycles can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Rand abstracts the randomness used for volume jitter, recipient pacing and
// reply decisions.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Store is the persistence collaborator. Lookup methods return (nil, nil)
// when no row matches; errors are reserved for storage failures.
type Store interface {
	GetAccount(id uint) (*models.EmailAccount, error)
	GetActiveAccount(id uint) (*models.EmailAccount, error)
	ListWarmupAccounts() ([]models.EmailAccount, error)

	GetActiveConfig(accountID uint) (*models.WarmupConfig, error)
	SaveDailyLimit(cfg *models.WarmupConfig) error

	CountSentBetween(senderID uint, from, to time.Time) (int, error)
	RecentRecipientIDs(senderID uint, since time.Time) ([]uint, error)
	SampleCandidates(senderID uint, exclude []uint, limit int) ([]models.EmailAccount, error)

	CreateMessage(m *models.WarmupMessage) error
	SaveMessage(m *models.WarmupMessage) error
	FindMessageForRecipient(messageID string, recipientID uint) (*models.WarmupMessage, error)
	SpamFlaggedMessages(recipientID uint) ([]models.WarmupMessage, error)

	CountSenderByStatus(senderID uint, statuses []string, from, to time.Time) (int, error)
	CountReceivedByStatus(recipientID uint, statuses []string, from, to time.Time) (int, error)
	CountOpened(recipientID uint, from, to time.Time) (int, error)
	CountReplied(recipientID uint, from, to time.Time) (int, error)
	CountInSpam(recipientID uint, from, to time.Time) (int, error)
	UpsertStat(stat *models.WarmupStat) error
}

// SlotReserver is an optional Store capability. A store that implements it
// hands out send slots atomically, which closes the window where two
// concurrent cycles for the same account both read the same sent-today count
// and together overshoot the daily target.
type SlotReserver interface {
	ReserveSendSlots(accountID uint, n int) (int, error)
}

// InboundMessage is one warmup-tagged message found by a mailbox scan.
// InboundMessage is a warmup-tagged message found in an account's inbox.
// MessageID is the RFC 5322 Message-ID without angle brackets.
type InboundMessage struct {
	MessageID string
	Subject   string
	From      string
	Body      string
	Date      time.Time
}

// Transport is the mail collaborator. Send returns the transport message id
// on success. RescueSpam moves warmup-tagged messages out of the provider's
// spam folders back into the inbox and reports how many it moved.
type Transport interface {
	Send(sender *models.EmailAccount, to, subject, bodyHTML, bodyText string) (string, error)
	ScanInbox(account *models.EmailAccount, marker string) ([]InboundMessage, error)
	RescueSpam(account *models.EmailAccount, marker string) (int, error)
}

// Engine runs the warmup cycle: inbound processing, ramped sending and the
// daily statistics rollup. All dependencies are explicit so tests can swap in
// fakes.
type Engine struct {
	Store     Store
	Transport Transport
	Clock     Clock
	Rand      Rand
	Logger    *log.Logger
}

// NewEngine wires an Engine with the system clock and a time-seeded RNG.
func NewEngine(store Store, transport Transport, logger *log.Logger) *Engine {
	return &Engine{
		Store:     store,
		Transport: transport,
		Clock:     systemClock{},
		Rand:      NewRand(time.Now().UnixNano()),
		Logger:    logger,
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

type lockedRand struct {
	r *rand.Rand
}

// NewRand returns a Rand backed by math/rand with the given seed.
func NewRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int   { return l.r.Intn(n) }
func (l *lockedRand) Float64() float64 { return l.r.Float64() }

// SendResult summarizes one send pass for an account.
type SendResult struct {
	Success    bool     `json:"success"`
	EmailsSent int      `json:"emails_sent"`
	Skipped    string   `json:"skipped,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// InboundResult summarizes one inbound pass for an account.
type InboundResult struct {
	Success         bool     `json:"success"`
	EmailsProcessed int      `json:"emails_processed"`
	EmailsRepliedTo int      `json:"emails_replied_to"`
	EmailsInSpam    int      `json:"emails_in_spam"`
	EmailsRescued   int      `json:"emails_rescued"`
	Errors          []string `json:"errors,omitempty"`
}

// AccountResult is one account's slice of a full cycle.
type AccountResult struct {
	EmailAccountID  uint     `json:"email_account_id"`
	EmailAddress    string   `json:"email_address"`
	EmailsProcessed int      `json:"emails_processed"`
	EmailsInSpam    int      `json:"emails_in_spam"`
	EmailsSent      int      `json:"emails_sent"`
	Errors          []string `json:"errors,omitempty"`
}

// CycleResult aggregates a full orchestrator pass over all eligible accounts.
type CycleResult struct {
	Success           bool            `json:"success"`
	AccountsProcessed int             `json:"accounts_processed"`
	TotalEmailsSent   int             `json:"total_emails_sent"`
	AccountResults    []AccountResult `json:"account_results"`
	StartedAt         time.Time       `json:"started_at"`
	FinishedAt        time.Time       `json:"finished_at"`
	Errors            []string        `json:"errors,omitempty"`
}

// daysInWarmup counts whole UTC days between the warmup start date and now,
// ignoring time of day on both ends.
func daysInWarmup(start, now time.Time) int {
	s := start.UTC()
	n := now.UTC()
	startDay := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	nowDay := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return int(nowDay.Sub(startDay).Hours() / 24)
}

// utcMidnight truncates t to the start of its UTC day.
func utcMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
