package models

import (
	"time"

	"gorm.io/gorm"
)

// WarmupMessage status values. Transitions only move forward:
// sent -> delivered -> opened -> replied. failed is terminal.
const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusOpened    = "opened"
	MessageStatusReplied   = "replied"
	MessageStatusFailed    = "failed"
)

// WarmupConfig holds the warmup settings for a single email account
type WarmupConfig struct {
	gorm.Model
	UserID         uint `gorm:"not null;index" json:"user_id"`
	EmailAccountID uint `gorm:"not null;uniqueIndex" json:"email_account_id"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	StartDate time.Time `json:"start_date"`

	// Ramp settings
	MaxEmailsPerDay   int `gorm:"default:40" json:"max_emails_per_day"`
	DailyIncrease     int `gorm:"default:2" json:"daily_increase"`
	CurrentDailyLimit int `gorm:"default:2" json:"current_daily_limit"`

	// Pacing between sends
	MinDelaySeconds int `gorm:"default:60" json:"min_delay_seconds"`
	MaxDelaySeconds int `gorm:"default:300" json:"max_delay_seconds"`

	// Engagement simulation
	TargetOpenRate   float64 `gorm:"default:80" json:"target_open_rate"`
	TargetReplyRate  float64 `gorm:"default:40" json:"target_reply_rate"`
	ReadDelaySeconds int     `gorm:"default:120" json:"read_delay_seconds"`

	// Program shape
	WarmupDays      int  `gorm:"default:28" json:"warmup_days"`
	WeekdaysOnly    bool `gorm:"default:false" json:"weekdays_only"`
	RandomizeVolume bool `gorm:"default:true" json:"randomize_volume"`
}

// WarmupMessage is one row per synthetic email exchanged between pool accounts.
// SenderID is nil for messages discovered by inbound scanning whose sender is
// not one of our tracked accounts.
type WarmupMessage struct {
	gorm.Model
	MessageID   string `gorm:"uniqueIndex;not null" json:"message_id"`
	SenderID    *uint  `gorm:"index" json:"sender_id"`
	RecipientID *uint  `gorm:"index" json:"recipient_id"`

	Subject string `json:"subject"`
	Body    string `gorm:"type:text" json:"body"`
	Status  string `gorm:"default:'sent'" json:"status"`
	IsReply bool   `gorm:"default:false" json:"is_reply"`
	InSpam  bool   `gorm:"default:false" json:"in_spam"`

	SentAt      *time.Time `json:"sent_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	OpenedAt    *time.Time `json:"opened_at"`
	RepliedAt   *time.Time `json:"replied_at"`

	ErrorMessage *string `gorm:"type:text" json:"error_message"`
}

// WarmupStat is the derived per-account, per-day rollup. It is rebuilt from
// the WarmupMessage ledger and is safe to regenerate at any time.
type WarmupStat struct {
	gorm.Model
	EmailAccountID uint      `gorm:"not null;index:idx_warmup_stats_account_date,unique" json:"email_account_id"`
	Date           time.Time `gorm:"not null;index:idx_warmup_stats_account_date,unique" json:"date"`

	EmailsSent     int `gorm:"default:0" json:"emails_sent"`
	EmailsReceived int `gorm:"default:0" json:"emails_received"`
	EmailsOpened   int `gorm:"default:0" json:"emails_opened"`
	EmailsReplied  int `gorm:"default:0" json:"emails_replied"`
	EmailsInSpam   int `gorm:"default:0" json:"emails_in_spam"`

	OpenRate            float64 `gorm:"default:0" json:"open_rate"`
	ReplyRate           float64 `gorm:"default:0" json:"reply_rate"`
	SpamRate            float64 `gorm:"default:0" json:"spam_rate"`
	DeliverabilityScore float64 `gorm:"default:0" json:"deliverability_score"`
}
