package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"warmbox/mailer"
	"warmbox/models"
	"warmbox/utils"
)

const (
	ErrInvalidAccountID = "invalid email account ID"
	ErrAccountNotFound  = "email account not found"
)

type AccountController struct {
	DB     *gorm.DB
	Mailer *mailer.Client
	Logger *log.Logger
}

func NewAccountController(db *gorm.DB, mc *mailer.Client, logger *log.Logger) *AccountController {
	return &AccountController{
		DB:     db,
		Mailer: mc,
		Logger: logger,
	}
}

type CreateAccountRequest struct {
	EmailAddress string `json:"email_address" validate:"required,email"`
	DisplayName  string `json:"display_name" validate:"omitempty,max=100"`

	SMTPHost     string `json:"smtp_host" validate:"required"`
	SMTPPort     int    `json:"smtp_port" validate:"required,gte=1,lte=65535"`
	SMTPUsername string `json:"smtp_username" validate:"required"`
	SMTPPassword string `json:"smtp_password" validate:"required"`

	IMAPHost       string `json:"imap_host" validate:"required"`
	IMAPPort       int    `json:"imap_port" validate:"omitempty,gte=1,lte=65535"`
	IMAPUsername   string `json:"imap_username" validate:"required"`
	IMAPPassword   string `json:"imap_password" validate:"required"`
	IMAPEncryption string `json:"imap_encryption" validate:"omitempty,oneof=SSL TLS STARTTLS NONE"`
}

type UpdateAccountRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`

	SMTPHost     *string `json:"smtp_host"`
	SMTPPort     *int    `json:"smtp_port" validate:"omitempty,gte=1,lte=65535"`
	SMTPUsername *string `json:"smtp_username"`
	SMTPPassword *string `json:"smtp_password"`

	IMAPHost       *string `json:"imap_host"`
	IMAPPort       *int    `json:"imap_port" validate:"omitempty,gte=1,lte=65535"`
	IMAPUsername   *string `json:"imap_username"`
	IMAPPassword   *string `json:"imap_password"`
	IMAPEncryption *string `json:"imap_encryption" validate:"omitempty,oneof=SSL TLS STARTTLS NONE"`
}

// fetchUserAccount loads an account owned by the authenticated user.
func (ac *AccountController) fetchUserAccount(c *fiber.Ctx) (*models.EmailAccount, error) {
	userID := c.Locals("userID").(uint)

	accountID, err := c.ParamsInt("id")
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrInvalidAccountID,
		})
	}

	var account models.EmailAccount
	if err := ac.DB.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": ErrAccountNotFound,
			})
		}
		ac.Logger.Printf("Database error fetching email account: %v", err)
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return &account, nil
}

// CreateEmailAccount enrolls a new mailbox. Credentials are encrypted before
// they are stored; the account stays unverified until VerifyEmailAccount runs.
func (ac *AccountController) CreateEmailAccount(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var existing models.EmailAccount
	if err := ac.DB.Where("email_address = ?", req.EmailAddress).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "email address already enrolled",
		})
	}

	smtpPassword, err := utils.Encrypt(req.SMTPPassword)
	if err != nil {
		ac.Logger.Printf("Failed to encrypt SMTP password: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to store credentials",
		})
	}
	imapPassword, err := utils.Encrypt(req.IMAPPassword)
	if err != nil {
		ac.Logger.Printf("Failed to encrypt IMAP password: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to store credentials",
		})
	}

	account := models.EmailAccount{
		UserID:       userID,
		EmailAddress: req.EmailAddress,
		DisplayName:  req.DisplayName,
		Domain:       utils.DomainFromEmail(req.EmailAddress),

		SMTPHost:     req.SMTPHost,
		SMTPPort:     req.SMTPPort,
		SMTPUsername: req.SMTPUsername,
		SMTPPassword: smtpPassword,

		IMAPHost:     req.IMAPHost,
		IMAPPort:     req.IMAPPort,
		IMAPUsername: req.IMAPUsername,
		IMAPPassword: imapPassword,

		IsActive:           true,
		VerificationStatus: "pending",
	}
	if req.IMAPEncryption != "" {
		account.IMAPEncryption = req.IMAPEncryption
	}

	if err := ac.DB.Create(&account).Error; err != nil {
		ac.Logger.Printf("Failed to create email account: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create email account",
		})
	}

	account.Sanitize()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "email account created",
		"data":    account,
	})
}

// GetEmailAccounts lists the user's enrolled mailboxes.
func (ac *AccountController) GetEmailAccounts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var accounts []models.EmailAccount
	if err := ac.DB.Where("user_id = ?", userID).Preload("Config").Find(&accounts).Error; err != nil {
		ac.Logger.Printf("Database error listing email accounts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch email accounts",
		})
	}

	for i := range accounts {
		accounts[i].Sanitize()
	}

	return c.JSON(fiber.Map{
		"data": accounts,
	})
}

func (ac *AccountController) GetEmailAccount(c *fiber.Ctx) error {
	account, err := ac.fetchUserAccount(c)
	if account == nil {
		return err
	}

	if err := ac.DB.Preload("Config").Preload("DNSRecords").First(account, account.ID).Error; err != nil {
		ac.Logger.Printf("Database error loading account relations: %v", err)
	}

	account.Sanitize()
	return c.JSON(fiber.Map{
		"data": account,
	})
}

// UpdateEmailAccount applies a partial update. Changing connection settings
// drops the verified flag until the account is verified again.
func (ac *AccountController) UpdateEmailAccount(c *fiber.Ctx) error {
	account, err := ac.fetchUserAccount(c)
	if account == nil {
		return err
	}

	var req UpdateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	updates := make(map[string]interface{})
	connectionChanged := false

	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.SMTPHost != nil {
		updates["smtp_host"] = *req.SMTPHost
		connectionChanged = true
	}
	if req.SMTPPort != nil {
		updates["smtp_port"] = *req.SMTPPort
		connectionChanged = true
	}
	if req.SMTPUsername != nil {
		updates["smtp_username"] = *req.SMTPUsername
		connectionChanged = true
	}
	if req.SMTPPassword != nil {
		encrypted, err := utils.Encrypt(*req.SMTPPassword)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to store credentials",
			})
		}
		updates["smtp_password"] = encrypted
		connectionChanged = true
	}
	if req.IMAPHost != nil {
		updates["imap_host"] = *req.IMAPHost
		connectionChanged = true
	}
	if req.IMAPPort != nil {
		updates["imap_port"] = *req.IMAPPort
		connectionChanged = true
	}
	if req.IMAPUsername != nil {
		updates["imap_username"] = *req.IMAPUsername
		connectionChanged = true
	}
	if req.IMAPPassword != nil {
		encrypted, err := utils.Encrypt(*req.IMAPPassword)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to store credentials",
			})
		}
		updates["imap_password"] = encrypted
		connectionChanged = true
	}
	if req.IMAPEncryption != nil {
		updates["imap_encryption"] = *req.IMAPEncryption
		connectionChanged = true
	}

	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no fields to update",
		})
	}

	if connectionChanged {
		updates["is_verified"] = false
		updates["verification_status"] = "pending"
	}

	if err := ac.DB.Model(account).Updates(updates).Error; err != nil {
		ac.Logger.Printf("Failed to update email account %d: %v", account.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update email account",
		})
	}

	account.Sanitize()
	return c.JSON(fiber.Map{
		"message": "email account updated",
		"data":    account,
	})
}

func (ac *AccountController) DeleteEmailAccount(c *fiber.Ctx) error {
	account, err := ac.fetchUserAccount(c)
	if account == nil {
		return err
	}

	if err := ac.DB.Delete(account).Error; err != nil {
		ac.Logger.Printf("Failed to delete email account %d: %v", account.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete email account",
		})
	}

	return c.JSON(fiber.Map{
		"message": "email account deleted",
	})
}

// VerifyEmailAccount checks the mailbox end to end: address syntax and MX,
// SMTP login, IMAP login. The account only becomes eligible for warmup when
// all three pass.
func (ac *AccountController) VerifyEmailAccount(c *fiber.Ctx) error {
	account, err := ac.fetchUserAccount(c)
	if account == nil {
		return err
	}

	addressCheck := utils.CheckEmailAddress(account.EmailAddress)

	smtpErr := ac.Mailer.VerifySMTPConnection(account)
	imapErr := ac.Mailer.VerifyIMAPConnection(account)

	verified := addressCheck.Status != "invalid" && smtpErr == nil && imapErr == nil

	if addressCheck.Status == "invalid" {
		utils.LogError("address_verification_failed", errors.New(addressCheck.Details), map[string]interface{}{
			"account_id":    account.ID,
			"email_address": account.EmailAddress,
		})
	}
	if smtpErr != nil {
		utils.LogError("smtp_verification_failed", smtpErr, map[string]interface{}{
			"account_id":    account.ID,
			"email_address": account.EmailAddress,
			"smtp_host":     account.SMTPHost,
		})
	}
	if imapErr != nil {
		utils.LogError("imap_verification_failed", imapErr, map[string]interface{}{
			"account_id":    account.ID,
			"email_address": account.EmailAddress,
			"imap_host":     account.IMAPHost,
		})
	}

	updates := map[string]interface{}{
		"is_verified": verified,
	}
	if verified {
		updates["verification_status"] = "verified"
		updates["last_error"] = nil
	} else {
		updates["verification_status"] = "failed"
		switch {
		case smtpErr != nil:
			updates["last_error"] = smtpErr.Error()
		case imapErr != nil:
			updates["last_error"] = imapErr.Error()
		default:
			updates["last_error"] = addressCheck.Details
		}
	}

	if err := ac.DB.Model(account).Updates(updates).Error; err != nil {
		utils.LogError("verification_save_failed", err, map[string]interface{}{
			"account_id": account.ID,
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to save verification result",
		})
	}

	results := fiber.Map{
		"address": addressCheck.Status,
		"smtp":    smtpErr == nil,
		"imap":    imapErr == nil,
	}
	if smtpErr != nil {
		results["smtp_error"] = smtpErr.Error()
	}
	if imapErr != nil {
		results["imap_error"] = imapErr.Error()
	}

	return c.JSON(fiber.Map{
		"message":  "verification completed",
		"verified": verified,
		"results":  results,
	})
}
