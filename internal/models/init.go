package models

import (
	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/logger"

	"github.com/shopspring/decimal"
)

// DefaultTierConfigs 内置的默认等级费率表
// special 等级不参与自动晋级，仅供运营手工指定
func DefaultTierConfigs() []TierConfig {
	moneyFromInt := func(v int64) Money {
		return NewMoneyFromDecimal(decimal.NewFromInt(v))
	}
	return []TierConfig{
		{Tier: constants.TierBronze, PercentageRate: moneyFromInt(10), FixedAmount: moneyFromInt(2), MinEarnings: moneyFromInt(0), SortOrder: 1},
		{Tier: constants.TierSilver, PercentageRate: moneyFromInt(15), FixedAmount: moneyFromInt(3), MinEarnings: moneyFromInt(100), SortOrder: 2},
		{Tier: constants.TierGold, PercentageRate: moneyFromInt(20), FixedAmount: moneyFromInt(5), MinEarnings: moneyFromInt(500), SortOrder: 3},
		{Tier: constants.TierPlatinum, PercentageRate: moneyFromInt(30), FixedAmount: moneyFromInt(8), MinEarnings: moneyFromInt(2000), SortOrder: 4},
		{Tier: constants.TierDiamond, PercentageRate: moneyFromInt(40), FixedAmount: moneyFromInt(10), MinEarnings: moneyFromInt(10000), SortOrder: 5},
		{Tier: constants.TierSpecial, PercentageRate: moneyFromInt(50), FixedAmount: moneyFromInt(15), MinEarnings: moneyFromInt(0), SortOrder: 99},
	}
}

// InitDefaultTiers 等级表为空时写入默认费率
func InitDefaultTiers() error {
	var count int64
	if err := DB.Model(&TierConfig{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tiers := DefaultTierConfigs()
	if err := DB.Create(&tiers).Error; err != nil {
		return err
	}
	logger.Infow("default_tier_configs_created", "count", len(tiers))
	return nil
}
