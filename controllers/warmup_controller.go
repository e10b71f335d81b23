package controller

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"warmbox/models"
	"warmbox/utils"
	"warmbox/warmup"
	"warmbox/worker"
)

const (
	ErrConfigNotFound    = "warmup configuration not found"
	ErrConfigExists      = "warmup configuration already exists for this email account"
	ErrAccountNotEnabled = "email account not found or not active/verified"
	ErrWarmupNotActive   = "warmup not configured or not active for this account"
)

type WarmupController struct {
	DB     *gorm.DB
	Engine *warmup.Engine
	Hub    *worker.Hub
	Logger *log.Logger
}

func NewWarmupController(db *gorm.DB, engine *warmup.Engine, hub *worker.Hub, logger *log.Logger) *WarmupController {
	return &WarmupController{
		DB:     db,
		Engine: engine,
		Hub:    hub,
		Logger: logger,
	}
}

type CreateWarmupConfigRequest struct {
	EmailAccountID uint `json:"email_account_id" validate:"required"`
	IsActive       bool `json:"is_active"`

	MaxEmailsPerDay   *int `json:"max_emails_per_day" validate:"omitempty,gte=1,lte=200"`
	DailyIncrease     *int `json:"daily_increase" validate:"omitempty,gte=1,lte=50"`
	CurrentDailyLimit *int `json:"current_daily_limit" validate:"omitempty,gte=1,lte=200"`

	MinDelaySeconds *int `json:"min_delay_seconds" validate:"omitempty,gte=1"`
	MaxDelaySeconds *int `json:"max_delay_seconds" validate:"omitempty,gte=1"`

	TargetOpenRate   *float64 `json:"target_open_rate" validate:"omitempty,gte=0,lte=100"`
	TargetReplyRate  *float64 `json:"target_reply_rate" validate:"omitempty,gte=0,lte=100"`
	ReadDelaySeconds *int     `json:"read_delay_seconds" validate:"omitempty,gte=1"`

	WarmupDays      *int  `json:"warmup_days" validate:"omitempty,gte=1,lte=365"`
	WeekdaysOnly    *bool `json:"weekdays_only"`
	RandomizeVolume *bool `json:"randomize_volume"`
}

type UpdateWarmupConfigRequest struct {
	IsActive *bool `json:"is_active"`

	MaxEmailsPerDay   *int `json:"max_emails_per_day" validate:"omitempty,gte=1,lte=200"`
	DailyIncrease     *int `json:"daily_increase" validate:"omitempty,gte=1,lte=50"`
	CurrentDailyLimit *int `json:"current_daily_limit" validate:"omitempty,gte=1,lte=200"`

	MinDelaySeconds *int `json:"min_delay_seconds" validate:"omitempty,gte=1"`
	MaxDelaySeconds *int `json:"max_delay_seconds" validate:"omitempty,gte=1"`

	TargetOpenRate   *float64 `json:"target_open_rate" validate:"omitempty,gte=0,lte=100"`
	TargetReplyRate  *float64 `json:"target_reply_rate" validate:"omitempty,gte=0,lte=100"`
	ReadDelaySeconds *int     `json:"read_delay_seconds" validate:"omitempty,gte=1"`

	WarmupDays      *int  `json:"warmup_days" validate:"omitempty,gte=1,lte=365"`
	WeekdaysOnly    *bool `json:"weekdays_only"`
	RandomizeVolume *bool `json:"randomize_volume"`
}

// fetchUserAccountByParam loads the account from the :id param scoped to the
// authenticated user.
func (wc *WarmupController) fetchUserAccountByParam(c *fiber.Ctx) (*models.EmailAccount, error) {
	userID := c.Locals("userID").(uint)

	accountID, err := c.ParamsInt("id")
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrInvalidAccountID,
		})
	}

	var account models.EmailAccount
	if err := wc.DB.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": ErrAccountNotFound,
			})
		}
		wc.Logger.Printf("Database error fetching email account: %v", err)
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return &account, nil
}

// GetWarmupConfigs lists the user's warmup configurations.
func (wc *WarmupController) GetWarmupConfigs(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var configs []models.WarmupConfig
	if err := wc.DB.Where("user_id = ?", userID).Find(&configs).Error; err != nil {
		wc.Logger.Printf("Database error listing warmup configs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch warmup configurations",
		})
	}

	return c.JSON(fiber.Map{
		"data": configs,
	})
}

// CreateWarmupConfig creates the configuration for an email account. An
// account has at most one config.
func (wc *WarmupController) CreateWarmupConfig(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req CreateWarmupConfigRequest
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

	var account models.EmailAccount
	if err := wc.DB.Where("id = ? AND user_id = ?", req.EmailAccountID, userID).First(&account).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": ErrAccountNotFound,
		})
	}

	var existing models.WarmupConfig
	if err := wc.DB.Where("email_account_id = ?", req.EmailAccountID).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrConfigExists,
		})
	}

	cfg := models.WarmupConfig{
		UserID:         userID,
		EmailAccountID: req.EmailAccountID,
		IsActive:       req.IsActive,
		StartDate:      time.Now().UTC(),

		MaxEmailsPerDay:   40,
		DailyIncrease:     2,
		CurrentDailyLimit: 2,
		MinDelaySeconds:   60,
		MaxDelaySeconds:   300,
		TargetOpenRate:    80,
		TargetReplyRate:   40,
		ReadDelaySeconds:  120,
		WarmupDays:        28,
		RandomizeVolume:   true,
	}
	applyConfigOverrides(&cfg, req.MaxEmailsPerDay, req.DailyIncrease, req.CurrentDailyLimit,
		req.MinDelaySeconds, req.MaxDelaySeconds, req.TargetOpenRate, req.TargetReplyRate,
		req.ReadDelaySeconds, req.WarmupDays, req.WeekdaysOnly, req.RandomizeVolume)

	if cfg.MinDelaySeconds > cfg.MaxDelaySeconds {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "min_delay_seconds must not exceed max_delay_seconds",
		})
	}

	if err := wc.DB.Create(&cfg).Error; err != nil {
		wc.Logger.Printf("Failed to create warmup config: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create warmup configuration",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "warmup configuration created",
		"data":    cfg,
	})
}

func applyConfigOverrides(cfg *models.WarmupConfig, maxPerDay, increase, limit,
	minDelay, maxDelay *int, openRate, replyRate *float64,
	readDelay, warmupDays *int, weekdaysOnly, randomize *bool) {

	if maxPerDay != nil {
		cfg.MaxEmailsPerDay = *maxPerDay
	}
	if increase != nil {
		cfg.DailyIncrease = *increase
	}
	if limit != nil {
		cfg.CurrentDailyLimit = *limit
	}
	if minDelay != nil {
		cfg.MinDelaySeconds = *minDelay
	}
	if maxDelay != nil {
		cfg.MaxDelaySeconds = *maxDelay
	}
	if openRate != nil {
		cfg.TargetOpenRate = *openRate
	}
	if replyRate != nil {
		cfg.TargetReplyRate = *replyRate
	}
	if readDelay != nil {
		cfg.ReadDelaySeconds = *readDelay
	}
	if warmupDays != nil {
		cfg.WarmupDays = *warmupDays
	}
	if weekdaysOnly != nil {
		cfg.WeekdaysOnly = *weekdaysOnly
	}
	if randomize != nil {
		cfg.RandomizeVolume = *randomize
	}
}

// GetWarmupConfig returns the configuration for one email account.
func (wc *WarmupController) GetWarmupConfig(c *fiber.Ctx) error {
	account, err := wc.fetchUserAccountByParam(c)
	if account == nil {
		return err
	}

	var cfg models.WarmupConfig
	if err := wc.DB.Where("email_account_id = ?", account.ID).First(&cfg).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": ErrConfigNotFound,
			})
		}
		wc.Logger.Printf("Database error fetching warmup config: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.JSON(fiber.Map{
		"data": cfg,
	})
}

// UpdateWarmupConfig applies a partial update to the account's configuration.
func (wc *WarmupController) UpdateWarmupConfig(c *fiber.Ctx) error {
	account, err := wc.fetchUserAccountByParam(c)
	if account == nil {
		return err
	}

	var req UpdateWarmupConfigRequest
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

	var cfg models.WarmupConfig
	if err := wc.DB.Where("email_account_id = ?", account.ID).First(&cfg).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": ErrConfigNotFound,
			})
		}
		wc.Logger.Printf("Database error fetching warmup config: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	applyConfigOverrides(&cfg, req.MaxEmailsPerDay, req.DailyIncrease, req.CurrentDailyLimit,
		req.MinDelaySeconds, req.MaxDelaySeconds, req.TargetOpenRate, req.TargetReplyRate,
		req.ReadDelaySeconds, req.WarmupDays, req.WeekdaysOnly, req.RandomizeVolume)

	if cfg.MinDelaySeconds > cfg.MaxDelaySeconds {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "min_delay_seconds must not exceed max_delay_seconds",
		})
	}

	if err := wc.DB.Save(&cfg).Error; err != nil {
		wc.Logger.Printf("Failed to update warmup config %d: %v", cfg.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update warmup configuration",
		})
	}

	return c.JSON(fiber.Map{
		"message": "warmup configuration updated",
		"data":    cfg,
	})
}

// ToggleWarmup flips warmup on or off for an account, creating a default
// configuration on first use.
func (wc *WarmupController) ToggleWarmup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	account, err := wc.fetchUserAccountByParam(c)
	if account == nil {
		return err
	}

	var cfg models.WarmupConfig
	err = wc.DB.Where("email_account_id = ?", account.ID).First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		cfg = models.WarmupConfig{
			UserID:         userID,
			EmailAccountID: account.ID,
			IsActive:       true,
			StartDate:      time.Now().UTC(),

			MaxEmailsPerDay:   40,
			DailyIncrease:     2,
			CurrentDailyLimit: 2,
			MinDelaySeconds:   60,
			MaxDelaySeconds:   300,
			TargetOpenRate:    80,
			TargetReplyRate:   40,
			ReadDelaySeconds:  120,
			WarmupDays:        28,
			RandomizeVolume:   true,
		}
		if err := wc.DB.Create(&cfg).Error; err != nil {
			wc.Logger.Printf("Failed to create warmup config: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create warmup configuration",
			})
		}
	} else if err != nil {
		wc.Logger.Printf("Database error fetching warmup config: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	} else {
		cfg.IsActive = !cfg.IsActive
		if err := wc.DB.Save(&cfg).Error; err != nil {
			wc.Logger.Printf("Failed to toggle warmup config %d: %v", cfg.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update warmup configuration",
			})
		}
	}

	return c.JSON(fiber.Map{
		"data": cfg,
	})
}

// RunWarmupForAccount triggers one inbound+send pass for a single account in
// the background and returns 202 immediately.
func (wc *WarmupController) RunWarmupForAccount(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	accountID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrInvalidAccountID,
		})
	}

	var account models.EmailAccount
	if err := wc.DB.Where("id = ? AND user_id = ? AND is_active = ? AND is_verified = ?",
		accountID, userID, true, true).First(&account).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": ErrAccountNotEnabled,
		})
	}

	var cfg models.WarmupConfig
	if err := wc.DB.Where("email_account_id = ? AND is_active = ?", accountID, true).First(&cfg).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrWarmupNotActive,
		})
	}

	go func(id uint) {
		inbound := wc.Engine.ProcessIncoming(id)
		sent := wc.Engine.SendWarmupEmails(id)
		wc.Logger.Printf("WARMUP: manual run for account %d: processed=%d replied=%d sent=%d errors=%d",
			id, inbound.EmailsProcessed, inbound.EmailsRepliedTo, sent.EmailsSent,
			len(inbound.Errors)+len(sent.Errors))
		if errs := append(inbound.Errors, sent.Errors...); len(errs) > 0 {
			utils.LogError("manual_warmup_run_failed", errors.New(strings.Join(errs, "; ")), map[string]interface{}{
				"email_account_id": id,
			})
		}
	}(account.ID)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "Warmup initiated in background",
	})
}

// RunWarmupCycle triggers a full cycle over all eligible accounts. Admin only.
func (wc *WarmupController) RunWarmupCycle(c *fiber.Ctx) error {
	go func() {
		result := wc.Engine.RunCycle()
		wc.Logger.Printf("WARMUP: manual cycle finished: accounts=%d sent=%d errors=%d",
			result.AccountsProcessed, result.TotalEmailsSent, len(result.Errors))
		if wc.Hub != nil {
			wc.Hub.Publish(result)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "Warmup cycle initiated in background",
	})
}

// GetWarmupStatus reports warmup progress and the latest daily rates for an
// account. With no stats recorded yet the deliverability score starts at 100.
func (wc *WarmupController) GetWarmupStatus(c *fiber.Ctx) error {
	account, err := wc.fetchUserAccountByParam(c)
	if account == nil {
		return err
	}

	var cfg models.WarmupConfig
	if err := wc.DB.Where("email_account_id = ?", account.ID).First(&cfg).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": ErrConfigNotFound,
			})
		}
		wc.Logger.Printf("Database error fetching warmup config: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	now := time.Now().UTC()
	daysInWarmup := int(now.Truncate(24*time.Hour).Sub(cfg.StartDate.UTC().Truncate(24*time.Hour)).Hours() / 24)
	progress := float64(daysInWarmup) / float64(cfg.WarmupDays) * 100
	if progress > 100 {
		progress = 100
	}

	var latest models.WarmupStat
	hasStats := wc.DB.Where("email_account_id = ?", account.ID).
		Order("date DESC").First(&latest).Error == nil

	var totalSent, totalReceived int64
	wc.DB.Model(&models.WarmupMessage{}).Where("sender_id = ?", account.ID).Count(&totalSent)
	wc.DB.Model(&models.WarmupMessage{}).Where("recipient_id = ?", account.ID).Count(&totalReceived)

	status := fiber.Map{
		"email_account_id":      account.ID,
		"is_active":             cfg.IsActive,
		"current_daily_limit":   cfg.CurrentDailyLimit,
		"days_in_warmup":        daysInWarmup,
		"total_warmup_days":     cfg.WarmupDays,
		"warmup_progress":       progress,
		"deliverability_score":  100.0,
		"open_rate":             0.0,
		"reply_rate":            0.0,
		"spam_rate":             0.0,
		"total_emails_sent":     totalSent,
		"total_emails_received": totalReceived,
	}
	if hasStats {
		status["deliverability_score"] = latest.DeliverabilityScore
		status["open_rate"] = latest.OpenRate
		status["reply_rate"] = latest.ReplyRate
		status["spam_rate"] = latest.SpamRate
	}

	return c.JSON(fiber.Map{
		"data": status,
	})
}

// GetWarmupStats returns the daily stat history for an account, newest first.
// The optional ?days=N query bounds the window (default 30).
func (wc *WarmupController) GetWarmupStats(c *fiber.Ctx) error {
	account, err := wc.fetchUserAccountByParam(c)
	if account == nil {
		return err
	}

	days := c.QueryInt("days", 30)
	if days < 1 {
		days = 1
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	var stats []models.WarmupStat
	if err := wc.DB.Where("email_account_id = ? AND date >= ?", account.ID, since).
		Order("date DESC").Find(&stats).Error; err != nil {
		wc.Logger.Printf("Database error fetching warmup stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch warmup statistics",
		})
	}

	return c.JSON(fiber.Map{
		"data": stats,
	})
}
