package service

import (
	"fmt"

	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PartnerLimits 合伙人佣金上限
type PartnerLimits struct {
	MaxPercentage models.Money `json:"max_percentage"`
	MaxFixed      models.Money `json:"max_fixed"`
	Explanation   string       `json:"explanation"`
}

// PartnerLimitsFor 由推广人的生效佣金推导合伙人佣金上限
// 换算基准是 minDeposit：保证合伙人在最小计佣充值上的所得不超过推广人
func PartnerLimitsFor(affiliateSpec CommissionSpec, minDeposit models.Money) (PartnerLimits, error) {
	if !minDeposit.Decimal.IsPositive() {
		return PartnerLimits{}, ErrInvalidAmount
	}

	switch affiliateSpec.Kind {
	case constants.CommissionModePercentage:
		rate := affiliateSpec.Value.Decimal
		maxFixed := rate.Div(hundred).Mul(minDeposit.Decimal)
		return PartnerLimits{
			MaxPercentage: affiliateSpec.Value,
			MaxFixed:      roundMoney(maxFixed),
			Explanation: fmt.Sprintf("推广人比例 %s%%，按基准充值 %s 换算固定上限 %s",
				affiliateSpec.Value, minDeposit, roundMoney(maxFixed)),
		}, nil
	case constants.CommissionModeFixed:
		fixed := affiliateSpec.Value.Decimal
		maxPct := fixed.Div(minDeposit.Decimal).Mul(hundred)
		if maxPct.GreaterThan(hundred) {
			maxPct = hundred
		}
		return PartnerLimits{
			MaxPercentage: roundMoney(maxPct),
			MaxFixed:      affiliateSpec.Value,
			Explanation: fmt.Sprintf("推广人固定佣金 %s，按基准充值 %s 换算比例上限 %s%%",
				affiliateSpec.Value, minDeposit, roundMoney(maxPct)),
		}, nil
	default:
		return PartnerLimits{}, ErrInvalidCommissionKind
	}
}

// ValidatePartnerCommission 校验合伙人的佣金方案不超过推广人上限
// 非正数一律拒绝
func ValidatePartnerCommission(affiliateSpec CommissionSpec, partnerKind string, partnerValue models.Money, minDeposit models.Money) error {
	if !partnerValue.Decimal.IsPositive() {
		return ErrInvalidAmount
	}
	limits, err := PartnerLimitsFor(affiliateSpec, minDeposit)
	if err != nil {
		return err
	}

	switch partnerKind {
	case constants.CommissionModePercentage:
		if partnerValue.Decimal.GreaterThan(limits.MaxPercentage.Decimal) {
			return ErrPartnerCommissionExceedsCap
		}
	case constants.CommissionModeFixed:
		if partnerValue.Decimal.GreaterThan(limits.MaxFixed.Decimal) {
			return ErrPartnerCommissionExceedsCap
		}
	default:
		return ErrInvalidCommissionKind
	}
	return nil
}
