package warmup

import (
	"errors"
	"time"

	"warmbox/models"

	"gorm.io/gorm"
)

// GormStore backs the Store interface with the application database. It does
// not implement SlotReserver: concurrent cycles for the same account can both
// read the same sent-today count and together exceed the daily target.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) GetAccount(id uint) (*models.EmailAccount, error) {
	var account models.EmailAccount
	err := s.DB.First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *GormStore) GetActiveAccount(id uint) (*models.EmailAccount, error) {
	var account models.EmailAccount
	err := s.DB.Where("id = ? AND is_active = ? AND is_verified = ?", id, true, true).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *GormStore) ListWarmupAccounts() ([]models.EmailAccount, error) {
	var accounts []models.EmailAccount
	err := s.DB.
		Joins("JOIN warmup_configs ON warmup_configs.email_account_id = email_accounts.id").
		Where("email_accounts.is_active = ? AND email_accounts.is_verified = ? AND warmup_configs.is_active = ?",
			true, true, true).
		Find(&accounts).Error
	return accounts, err
}

func (s *GormStore) GetActiveConfig(accountID uint) (*models.WarmupConfig, error) {
	var cfg models.WarmupConfig
	err := s.DB.Where("email_account_id = ? AND is_active = ?", accountID, true).
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *GormStore) SaveDailyLimit(cfg *models.WarmupConfig) error {
	return s.DB.Model(cfg).Update("current_daily_limit", cfg.CurrentDailyLimit).Error
}

func (s *GormStore) CountSentBetween(senderID uint, from, to time.Time) (int, error) {
	var count int64
	err := s.DB.Model(&models.WarmupMessage{}).
		Where("sender_id = ? AND sent_at >= ? AND sent_at <= ?", senderID, from, to).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) RecentRecipientIDs(senderID uint, since time.Time) ([]uint, error) {
	var ids []uint
	err := s.DB.Model(&models.WarmupMessage{}).
		Where("sender_id = ? AND sent_at >= ? AND recipient_id IS NOT NULL", senderID, since).
		Distinct().
		Pluck("recipient_id", &ids).Error
	return ids, err
}

func (s *GormStore) SampleCandidates(senderID uint, exclude []uint, limit int) ([]models.EmailAccount, error) {
	query := s.DB.
		Where("id <> ? AND is_active = ? AND is_verified = ?", senderID, true, true)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}

	var accounts []models.EmailAccount
	err := query.Order("RANDOM()").Limit(limit).Find(&accounts).Error
	return accounts, err
}

func (s *GormStore) CreateMessage(m *models.WarmupMessage) error {
	return s.DB.Create(m).Error
}

func (s *GormStore) SaveMessage(m *models.WarmupMessage) error {
	return s.DB.Save(m).Error
}

func (s *GormStore) FindMessageForRecipient(messageID string, recipientID uint) (*models.WarmupMessage, error) {
	var msg models.WarmupMessage
	err := s.DB.Where("message_id = ? AND recipient_id = ?", messageID, recipientID).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *GormStore) SpamFlaggedMessages(recipientID uint) ([]models.WarmupMessage, error) {
	var messages []models.WarmupMessage
	err := s.DB.Where(
		"recipient_id = ? AND in_spam = ? AND status IN ? AND is_reply = ?",
		recipientID, true, []string{models.MessageStatusDelivered, models.MessageStatusOpened}, false).
		Find(&messages).Error
	return messages, err
}

func (s *GormStore) CountSenderByStatus(senderID uint, statuses []string, from, to time.Time) (int, error) {
	var count int64
	err := s.DB.Model(&models.WarmupMessage{}).
		Where("sender_id = ? AND status IN ? AND sent_at >= ? AND sent_at <= ?", senderID, statuses, from, to).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) CountReceivedByStatus(recipientID uint, statuses []string, from, to time.Time) (int, error) {
	var count int64
	err := s.DB.Model(&models.WarmupMessage{}).
		Where("recipient_id = ? AND status IN ? AND delivered_at >= ? AND delivered_at <= ?", recipientID, statuses, from, to).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) CountOpened(recipientID uint, from, to time.Time) (int, error) {
	var count int64
	err := s.DB.Model(&models.WarmupMessage{}).
		Where("recipient_id = ? AND status IN ? AND opened_at >= ? AND opened_at <= ?",
			recipientID, []string{models.MessageStatusOpened, models.MessageStatusReplied}, from, to).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) CountReplied(recipientID uint, from, to time.Time) (int, error) {
	var count int64
	err := s.DB.Model(&models.WarmupMessage{}).
		Where("recipient_id = ? AND status = ? AND replied_at >= ? AND replied_at <= ?",
			recipientID, models.MessageStatusReplied, from, to).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) CountInSpam(recipientID uint, from, to time.Time) (int, error) {
	var count int64
	err := s.DB.Model(&models.WarmupMessage{}).
		Where("recipient_id = ? AND in_spam = ? AND delivered_at >= ? AND delivered_at <= ?",
			recipientID, true, from, to).
		Count(&count).Error
	return int(count), err
}

func (s *GormStore) UpsertStat(stat *models.WarmupStat) error {
	var existing models.WarmupStat
	err := s.DB.Where("email_account_id = ? AND date = ?", stat.EmailAccountID, stat.Date).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.DB.Create(stat).Error
	}
	if err != nil {
		return err
	}

	return s.DB.Model(&existing).Updates(map[string]interface{}{
		"emails_sent":          stat.EmailsSent,
		"emails_received":      stat.EmailsReceived,
		"emails_opened":        stat.EmailsOpened,
		"emails_replied":       stat.EmailsReplied,
		"emails_in_spam":       stat.EmailsInSpam,
		"open_rate":            stat.OpenRate,
		"reply_rate":           stat.ReplyRate,
		"spam_rate":            stat.SpamRate,
		"deliverability_score": stat.DeliverabilityScore,
	}).Error
}
