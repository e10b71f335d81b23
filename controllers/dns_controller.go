package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"warmbox/models"
	"warmbox/utils"
)

type DNSController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewDNSController(db *gorm.DB, logger *log.Logger) *DNSController {
	return &DNSController{
		DB:     db,
		Logger: logger,
	}
}

// loadOrGenerateRecords returns the account's DNS records, generating and
// persisting the recommended SPF/DKIM/DMARC set on first access.
func (dc *DNSController) loadOrGenerateRecords(account *models.EmailAccount) ([]models.DomainDNSRecord, error) {
	var records []models.DomainDNSRecord
	if err := dc.DB.Where("email_account_id = ?", account.ID).Find(&records).Error; err != nil {
		return nil, err
	}

	if len(records) == 0 {
		records = utils.GenerateDNSRecords(account)
		if err := dc.DB.Create(&records).Error; err != nil {
			return nil, err
		}
	}

	return records, nil
}

func (dc *DNSController) fetchUserAccount(c *fiber.Ctx) (*models.EmailAccount, error) {
	userID := c.Locals("userID").(uint)

	accountID, err := c.ParamsInt("id")
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrInvalidAccountID,
		})
	}

	var account models.EmailAccount
	if err := dc.DB.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": ErrAccountNotFound,
			})
		}
		dc.Logger.Printf("Database error fetching email account: %v", err)
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return &account, nil
}

// GetDNSRecords returns the recommended DNS records for an account's domain.
func (dc *DNSController) GetDNSRecords(c *fiber.Ctx) error {
	account, err := dc.fetchUserAccount(c)
	if account == nil {
		return err
	}

	records, err := dc.loadOrGenerateRecords(account)
	if err != nil {
		dc.Logger.Printf("Failed to load DNS records for account %d: %v", account.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load DNS records",
		})
	}

	return c.JSON(fiber.Map{
		"data": records,
	})
}

// VerifyDNSRecords runs TXT lookups for each record and persists the result.
func (dc *DNSController) VerifyDNSRecords(c *fiber.Ctx) error {
	account, err := dc.fetchUserAccount(c)
	if account == nil {
		return err
	}

	records, err := dc.loadOrGenerateRecords(account)
	if err != nil {
		dc.Logger.Printf("Failed to load DNS records for account %d: %v", account.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load DNS records",
		})
	}

	allVerified := true
	results := make([]fiber.Map, 0, len(records))
	now := time.Now().UTC()

	for i := range records {
		record := &records[i]

		verified, err := utils.VerifyDNSRecord(record)
		if err != nil {
			dc.Logger.Printf("DNS lookup failed for %s %s: %v", record.RecordType, record.RecordName, err)
		}

		record.IsVerified = verified
		record.LastChecked = utils.Pointer(now)
		if !verified {
			allVerified = false
		}

		if err := dc.DB.Model(record).Updates(map[string]interface{}{
			"is_verified":  record.IsVerified,
			"last_checked": record.LastChecked,
		}).Error; err != nil {
			dc.Logger.Printf("Failed to save DNS record %d: %v", record.ID, err)
		}

		result := fiber.Map{
			"id":       record.ID,
			"type":     record.RecordType,
			"name":     record.RecordName,
			"value":    record.RecordValue,
			"verified": verified,
		}
		if !verified {
			result["error"] = record.RecordType + " record not found"
		}
		results = append(results, result)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"verified": allVerified,
		"records":  results,
	})
}
