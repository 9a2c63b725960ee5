package service

import (
	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/models"

	"github.com/shopspring/decimal"
)

// CommissionSpec 解析后的生效佣金描述，整个链路只认这一个形态
// Kind 为 percentage 时 Value 是百分数（40 表示 40%），fixed 时为固定金额
type CommissionSpec struct {
	Kind  string       `json:"kind"`
	Value models.Money `json:"value"`
}

// CommissionFor 按佣金描述计算一笔充值产生的佣金金额
func (spec CommissionSpec) CommissionFor(depositAmount models.Money) models.Money {
	if spec.Kind == constants.CommissionModeFixed {
		return spec.Value
	}
	return depositAmount.PercentOf(spec.Value)
}

// RateSnapshot 返回写入佣金事件的费率快照
func (spec CommissionSpec) RateSnapshot() models.Money {
	return spec.Value
}

// ResolveAffiliateCommission 解析推广人的生效佣金
// 解析顺序固定：等级费率表 → 自定义固定佣金 → 自定义比例 → 兜底等级费率
// 任何一档的值必须为正数才生效，全部落空返回 ErrNoCommissionConfigured
func ResolveAffiliateCommission(affiliate *models.Affiliate, tierCfg *models.TierConfig) (CommissionSpec, error) {
	if affiliate == nil {
		return CommissionSpec{}, ErrAffiliateNotFound
	}
	mode := affiliate.CommissionMode
	if mode != constants.CommissionModePercentage && mode != constants.CommissionModeFixed {
		return CommissionSpec{}, ErrInvalidCommissionKind
	}

	if tierCfg != nil {
		if mode == constants.CommissionModeFixed && tierCfg.FixedAmount.Decimal.IsPositive() {
			return CommissionSpec{Kind: constants.CommissionModeFixed, Value: tierCfg.FixedAmount}, nil
		}
		if mode == constants.CommissionModePercentage && tierCfg.PercentageRate.Decimal.IsPositive() {
			return CommissionSpec{Kind: constants.CommissionModePercentage, Value: tierCfg.PercentageRate}, nil
		}
	}

	if mode == constants.CommissionModeFixed && affiliate.CustomFixedAmount.Decimal.IsPositive() {
		return CommissionSpec{Kind: constants.CommissionModeFixed, Value: affiliate.CustomFixedAmount}, nil
	}
	if mode == constants.CommissionModePercentage && affiliate.CustomRate.Decimal.IsPositive() {
		return CommissionSpec{Kind: constants.CommissionModePercentage, Value: affiliate.CustomRate}, nil
	}

	if affiliate.CurrentLevelRate.Decimal.IsPositive() {
		return CommissionSpec{Kind: mode, Value: affiliate.CurrentLevelRate}, nil
	}

	return CommissionSpec{}, ErrNoCommissionConfigured
}

// ResolvePartnerCommission 解析合伙人的生效佣金
// 合伙人没有等级，只看自定义配置
func ResolvePartnerCommission(partner *models.Partner) (CommissionSpec, error) {
	if partner == nil {
		return CommissionSpec{}, ErrPartnerNotFound
	}
	mode := partner.CommissionMode
	if mode != constants.CommissionModePercentage && mode != constants.CommissionModeFixed {
		return CommissionSpec{}, ErrInvalidCommissionKind
	}

	if mode == constants.CommissionModeFixed && partner.CustomFixedAmount.Decimal.IsPositive() {
		return CommissionSpec{Kind: constants.CommissionModeFixed, Value: partner.CustomFixedAmount}, nil
	}
	if mode == constants.CommissionModePercentage && partner.CustomRate.Decimal.IsPositive() {
		return CommissionSpec{Kind: constants.CommissionModePercentage, Value: partner.CustomRate}, nil
	}

	return CommissionSpec{}, ErrNoCommissionConfigured
}

// roundMoney 统一 2 位小数
func roundMoney(d decimal.Decimal) models.Money {
	return models.NewMoneyFromDecimal(d)
}
