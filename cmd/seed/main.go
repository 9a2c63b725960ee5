package main

import (
	"github.com/refledger/internal/config"
	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/logger"
	"github.com/refledger/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 等级费率基线
	for _, tier := range models.DefaultTierConfigs() {
		var existing models.TierConfig
		if err := models.DB.Where("tier = ?", tier.Tier).First(&existing).Error; err != nil {
			if err := models.DB.Create(&tier).Error; err != nil {
				stdLog.Printf("Failed to create tier %s: %v", tier.Tier, err)
			} else {
				stdLog.Printf("Created tier: %s", tier.Tier)
			}
		} else {
			stdLog.Printf("Tier already exists: %s", tier.Tier)
		}
	}

	// 演示推广人
	affiliate := models.Affiliate{
		Name:           "Demo Affiliate",
		Email:          "affiliate@example.com",
		Tier:           constants.TierGold,
		CommissionMode: constants.CommissionModePercentage,
		Status:         constants.AffiliateStatusActive,
	}
	var existingAffiliate models.Affiliate
	if err := models.DB.Where("email = ?", affiliate.Email).First(&existingAffiliate).Error; err != nil {
		if err := models.DB.Create(&affiliate).Error; err != nil {
			stdLog.Printf("Failed to create demo affiliate: %v", err)
		} else {
			stdLog.Printf("Created demo affiliate: %s", affiliate.Email)
		}
	} else {
		affiliate = existingAffiliate
		stdLog.Printf("Demo affiliate already exists: %s", affiliate.Email)
	}

	// 演示合伙人（固定佣金 3 元，低于金牌 20% x 15 的上限）
	if affiliate.ID != 0 {
		partner := models.Partner{
			AffiliateID:       affiliate.ID,
			Name:              "Demo Partner",
			Email:             "partner@example.com",
			CommissionMode:    constants.CommissionModeFixed,
			CustomFixedAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(3)),
			Status:            constants.AffiliateStatusActive,
		}
		var existingPartner models.Partner
		if err := models.DB.Where("email = ?", partner.Email).First(&existingPartner).Error; err != nil {
			if err := models.DB.Create(&partner).Error; err != nil {
				stdLog.Printf("Failed to create demo partner: %v", err)
			} else {
				stdLog.Printf("Created demo partner: %s", partner.Email)
			}
		} else {
			partner = existingPartner
			stdLog.Printf("Demo partner already exists: %s", partner.Email)
		}

		if partner.ID != 0 {
			var codeCount int64
			models.DB.Model(&models.PartnerCode{}).Where("partner_id = ?", partner.ID).Count(&codeCount)
			if codeCount == 0 {
				code := models.PartnerCode{
					PartnerID: partner.ID,
					Code:      "DEMO2024",
					Status:    constants.PartnerCodeStatusActive,
				}
				if err := models.DB.Create(&code).Error; err != nil {
					stdLog.Printf("Failed to create demo partner code: %v", err)
				} else {
					stdLog.Printf("Created demo partner code: %s", code.Code)
				}
			}
		}
	}

	stdLog.Println("Seed finished")
}
