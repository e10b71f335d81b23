package models

import (
	"time"

	"gorm.io/gorm"
)

// DomainDNSRecord stores a recommended or verified DNS record for an
// email account's sending domain
type DomainDNSRecord struct {
	gorm.Model
	EmailAccountID uint `gorm:"not null;index" json:"email_account_id"`

	RecordType  string `gorm:"not null" json:"record_type"` // SPF, DKIM, DMARC
	RecordName  string `gorm:"not null" json:"record_name"`
	RecordValue string `gorm:"type:text" json:"record_value"`

	IsVerified  bool       `gorm:"default:false" json:"is_verified"`
	LastChecked *time.Time `json:"last_checked"`
}
