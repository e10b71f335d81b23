package warmup

import (
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"warmbox/models"
)

// fakeClock returns a fixed instant and records pacing sleeps instead of
// blocking.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time        { return c.now }
func (c *fakeClock) Sleep(d time.Duration) { c.sleeps = append(c.sleeps, d) }

// scriptedRand replays the given sequences. Empty sequences yield zero
// values, which makes template and jitter picks deterministic.
type scriptedRand struct {
	ints   []int
	floats []float64
	i, f   int
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[r.i%len(r.ints)]
	r.i++
	if v >= n {
		v = n - 1
	}
	return v
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[r.f%len(r.floats)]
	r.f++
	return v
}

// fakeStore is an in-memory Store with the same filtering semantics as the
// gorm-backed store: lookups return (nil, nil) when nothing matches, message
// saves write back by primary key, and candidate sampling is ordered by ID so
// tests are deterministic.
type fakeStore struct {
	accounts map[uint]*models.EmailAccount
	configs  map[uint]*models.WarmupConfig
	messages []models.WarmupMessage
	stats    map[string]*models.WarmupStat

	savedLimits []int
	nextMsgID   uint

	errs map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[uint]*models.EmailAccount),
		configs:  make(map[uint]*models.WarmupConfig),
		stats:    make(map[string]*models.WarmupStat),
		errs:     make(map[string]error),
	}
}

func (s *fakeStore) addAccount(a *models.EmailAccount)  { s.accounts[a.ID] = a }
func (s *fakeStore) addConfig(cfg *models.WarmupConfig) { s.configs[cfg.EmailAccountID] = cfg }
func (s *fakeStore) seedMessage(m models.WarmupMessage) uint {
	s.nextMsgID++
	m.ID = s.nextMsgID
	s.messages = append(s.messages, m)
	return m.ID
}

func (s *fakeStore) message(id uint) *models.WarmupMessage {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return &s.messages[i]
		}
	}
	return nil
}

func (s *fakeStore) GetAccount(id uint) (*models.EmailAccount, error) {
	if err := s.errs["GetAccount"]; err != nil {
		return nil, err
	}
	return s.accounts[id], nil
}

func (s *fakeStore) GetActiveAccount(id uint) (*models.EmailAccount, error) {
	if err := s.errs["GetActiveAccount"]; err != nil {
		return nil, err
	}
	a := s.accounts[id]
	if a == nil || !a.IsActive || !a.IsVerified {
		return nil, nil
	}
	return a, nil
}

func (s *fakeStore) ListWarmupAccounts() ([]models.EmailAccount, error) {
	if err := s.errs["ListWarmupAccounts"]; err != nil {
		return nil, err
	}
	var out []models.EmailAccount
	for _, a := range s.accounts {
		cfg := s.configs[a.ID]
		if a.IsActive && a.IsVerified && cfg != nil && cfg.IsActive {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) GetActiveConfig(accountID uint) (*models.WarmupConfig, error) {
	if err := s.errs["GetActiveConfig"]; err != nil {
		return nil, err
	}
	cfg := s.configs[accountID]
	if cfg == nil || !cfg.IsActive {
		return nil, nil
	}
	return cfg, nil
}

func (s *fakeStore) SaveDailyLimit(cfg *models.WarmupConfig) error {
	if err := s.errs["SaveDailyLimit"]; err != nil {
		return err
	}
	s.savedLimits = append(s.savedLimits, cfg.CurrentDailyLimit)
	return nil
}

func (s *fakeStore) CountSentBetween(senderID uint, from, to time.Time) (int, error) {
	if err := s.errs["CountSentBetween"]; err != nil {
		return 0, err
	}
	count := 0
	for i := range s.messages {
		m := &s.messages[i]
		if m.SenderID != nil && *m.SenderID == senderID &&
			m.SentAt != nil && !m.SentAt.Before(from) && !m.SentAt.After(to) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) RecentRecipientIDs(senderID uint, since time.Time) ([]uint, error) {
	if err := s.errs["RecentRecipientIDs"]; err != nil {
		return nil, err
	}
	seen := make(map[uint]bool)
	var ids []uint
	for i := range s.messages {
		m := &s.messages[i]
		if m.SenderID != nil && *m.SenderID == senderID && m.RecipientID != nil &&
			m.SentAt != nil && !m.SentAt.Before(since) && !seen[*m.RecipientID] {
			seen[*m.RecipientID] = true
			ids = append(ids, *m.RecipientID)
		}
	}
	return ids, nil
}

func (s *fakeStore) SampleCandidates(senderID uint, exclude []uint, limit int) ([]models.EmailAccount, error) {
	if err := s.errs["SampleCandidates"]; err != nil {
		return nil, err
	}
	excluded := make(map[uint]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	var out []models.EmailAccount
	for _, a := range s.accounts {
		if a.ID == senderID || excluded[a.ID] || !a.IsActive || !a.IsVerified {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) CreateMessage(m *models.WarmupMessage) error {
	if err := s.errs["CreateMessage"]; err != nil {
		return err
	}
	s.nextMsgID++
	m.ID = s.nextMsgID
	s.messages = append(s.messages, *m)
	return nil
}

func (s *fakeStore) SaveMessage(m *models.WarmupMessage) error {
	if err := s.errs["SaveMessage"]; err != nil {
		return err
	}
	for i := range s.messages {
		if s.messages[i].ID == m.ID {
			s.messages[i] = *m
			return nil
		}
	}
	s.messages = append(s.messages, *m)
	return nil
}

func (s *fakeStore) FindMessageForRecipient(messageID string, recipientID uint) (*models.WarmupMessage, error) {
	if err := s.errs["FindMessageForRecipient"]; err != nil {
		return nil, err
	}
	for i := range s.messages {
		m := s.messages[i]
		if m.MessageID == messageID && m.RecipientID != nil && *m.RecipientID == recipientID {
			return &m, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SpamFlaggedMessages(recipientID uint) ([]models.WarmupMessage, error) {
	if err := s.errs["SpamFlaggedMessages"]; err != nil {
		return nil, err
	}
	var out []models.WarmupMessage
	for i := range s.messages {
		m := s.messages[i]
		if m.RecipientID != nil && *m.RecipientID == recipientID && m.InSpam && !m.IsReply &&
			(m.Status == models.MessageStatusDelivered || m.Status == models.MessageStatusOpened) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) CountSenderByStatus(senderID uint, statuses []string, from, to time.Time) (int, error) {
	count := 0
	for i := range s.messages {
		m := &s.messages[i]
		if m.SenderID != nil && *m.SenderID == senderID && statusIn(m.Status, statuses) &&
			m.SentAt != nil && !m.SentAt.Before(from) && !m.SentAt.After(to) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) CountReceivedByStatus(recipientID uint, statuses []string, from, to time.Time) (int, error) {
	count := 0
	for i := range s.messages {
		m := &s.messages[i]
		if m.RecipientID != nil && *m.RecipientID == recipientID && statusIn(m.Status, statuses) &&
			m.DeliveredAt != nil && !m.DeliveredAt.Before(from) && !m.DeliveredAt.After(to) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) CountOpened(recipientID uint, from, to time.Time) (int, error) {
	count := 0
	for i := range s.messages {
		m := &s.messages[i]
		if m.RecipientID != nil && *m.RecipientID == recipientID &&
			statusIn(m.Status, []string{models.MessageStatusOpened, models.MessageStatusReplied}) &&
			m.OpenedAt != nil && !m.OpenedAt.Before(from) && !m.OpenedAt.After(to) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) CountReplied(recipientID uint, from, to time.Time) (int, error) {
	count := 0
	for i := range s.messages {
		m := &s.messages[i]
		if m.RecipientID != nil && *m.RecipientID == recipientID &&
			m.Status == models.MessageStatusReplied &&
			m.RepliedAt != nil && !m.RepliedAt.Before(from) && !m.RepliedAt.After(to) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) CountInSpam(recipientID uint, from, to time.Time) (int, error) {
	count := 0
	for i := range s.messages {
		m := &s.messages[i]
		if m.RecipientID != nil && *m.RecipientID == recipientID && m.InSpam &&
			m.DeliveredAt != nil && !m.DeliveredAt.Before(from) && !m.DeliveredAt.After(to) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) UpsertStat(stat *models.WarmupStat) error {
	if err := s.errs["UpsertStat"]; err != nil {
		return err
	}
	key := fmt.Sprintf("%d|%s", stat.EmailAccountID, stat.Date.Format("2006-01-02"))
	copied := *stat
	s.stats[key] = &copied
	return nil
}

func statusIn(status string, statuses []string) bool {
	for _, v := range statuses {
		if v == status {
			return true
		}
	}
	return false
}

// fakeTransport records sends and replays scripted inbox and spam-rescue
// results. The ops log captures call ordering across a cycle.
type fakeTransport struct {
	sent     []sentEmail
	sendErrs map[string]error

	inbox     []InboundMessage
	scanErr   error
	rescued   int
	rescueErr error

	ops    []string
	nextID int
}

type sentEmail struct {
	from     string
	to       string
	subject  string
	bodyHTML string
	bodyText string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sendErrs: make(map[string]error)}
}

func (t *fakeTransport) Send(sender *models.EmailAccount, to, subject, bodyHTML, bodyText string) (string, error) {
	t.ops = append(t.ops, "send:"+sender.EmailAddress)
	if err := t.sendErrs[to]; err != nil {
		return "", err
	}
	t.nextID++
	t.sent = append(t.sent, sentEmail{
		from:     sender.EmailAddress,
		to:       to,
		subject:  subject,
		bodyHTML: bodyHTML,
		bodyText: bodyText,
	})
	return fmt.Sprintf("msg-%d@pool.test", t.nextID), nil
}

func (t *fakeTransport) ScanInbox(account *models.EmailAccount, marker string) ([]InboundMessage, error) {
	t.ops = append(t.ops, "scan:"+account.EmailAddress)
	if t.scanErr != nil {
		return nil, t.scanErr
	}
	return t.inbox, nil
}

func (t *fakeTransport) RescueSpam(account *models.EmailAccount, marker string) (int, error) {
	t.ops = append(t.ops, "rescue:"+account.EmailAddress)
	if t.rescueErr != nil {
		return 0, t.rescueErr
	}
	return t.rescued, nil
}

// testNow is a Wednesday so weekday-only tests are not skipped by accident.
var testNow = time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)

func newTestEngine(store *fakeStore, transport *fakeTransport) (*Engine, *fakeClock) {
	clock := &fakeClock{now: testNow}
	engine := &Engine{
		Store:     store,
		Transport: transport,
		Clock:     clock,
		Rand:      &scriptedRand{},
		Logger:    log.New(io.Discard, "", 0),
	}
	return engine, clock
}

func poolAccount(id uint, address string) *models.EmailAccount {
	a := &models.EmailAccount{
		EmailAddress: address,
		IsActive:     true,
		IsVerified:   true,
	}
	a.ID = id
	return a
}

func poolConfig(accountID uint, start time.Time) *models.WarmupConfig {
	cfg := &models.WarmupConfig{
		UserID:            1,
		EmailAccountID:    accountID,
		IsActive:          true,
		StartDate:         start,
		MaxEmailsPerDay:   40,
		DailyIncrease:     2,
		CurrentDailyLimit: 2,
		MinDelaySeconds:   0,
		MaxDelaySeconds:   0,
		TargetReplyRate:   0,
		ReadDelaySeconds:  30,
	}
	cfg.ID = accountID
	return cfg
}

func addr(id uint) string { return fmt.Sprintf("account-%d@pool.test", id) }

func uintPtr(v uint) *uint { return &v }
func timePtr(t time.Time) *time.Time { return &t }
