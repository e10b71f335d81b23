package models

import (
	"gorm.io/gorm"
)

// EmailAccount represents a mailbox enrolled in warmup
type EmailAccount struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	// Basic identification
	EmailAddress string `gorm:"uniqueIndex;not null" json:"email_address"`
	DisplayName  string `json:"display_name"`
	Domain       string `gorm:"index" json:"domain"`

	// ========= SMTP Configuration =========
	SMTPHost     string `gorm:"not null" json:"smtp_host"`
	SMTPPort     int    `gorm:"not null" json:"smtp_port"`
	SMTPUsername string `gorm:"not null" json:"smtp_username"`
	SMTPPassword string `gorm:"not null" json:"-"` // Encrypted in application layer

	// ========= IMAP Configuration =========
	IMAPHost       string `json:"imap_host"`
	IMAPPort       int    `json:"imap_port" gorm:"default:993"`
	IMAPUsername   string `json:"imap_username"`
	IMAPPassword   string `json:"-"` // Encrypted in application layer
	IMAPEncryption string `json:"imap_encryption" gorm:"default:'SSL'"`

	// ========= Status & Verification =========
	IsActive           bool   `gorm:"default:true" json:"is_active"`
	IsVerified         bool   `gorm:"default:false" json:"is_verified"`
	VerificationStatus string `gorm:"default:'pending'" json:"verification_status"` // pending, verified, failed
	LastError          *string `json:"last_error"`

	// Relations
	Config           *WarmupConfig     `gorm:"foreignKey:EmailAccountID;constraint:OnDelete:CASCADE" json:"config,omitempty"`
	Stats            []WarmupStat      `gorm:"foreignKey:EmailAccountID;constraint:OnDelete:CASCADE" json:"stats,omitempty"`
	SentMessages     []WarmupMessage   `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sent_messages,omitempty"`
	ReceivedMessages []WarmupMessage   `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"received_messages,omitempty"`
	DNSRecords       []DomainDNSRecord `gorm:"foreignKey:EmailAccountID;constraint:OnDelete:CASCADE" json:"dns_records,omitempty"`
}

// Sanitize clears credentials before the account is rendered in a response
func (a *EmailAccount) Sanitize() {
	a.SMTPPassword = ""
	a.IMAPPassword = ""
}
