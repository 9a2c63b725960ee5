package service

import (
	"errors"
	"testing"

	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/models"

	"github.com/shopspring/decimal"
)

func TestPartnerLimitsForPercentageAffiliate(t *testing.T) {
	spec := CommissionSpec{
		Kind:  constants.CommissionModePercentage,
		Value: models.NewMoneyFromDecimal(decimal.NewFromInt(40)),
	}
	limits, err := PartnerLimitsFor(spec, money(t, "15"))
	if err != nil {
		t.Fatalf("limits failed: %v", err)
	}
	if limits.MaxPercentage.String() != "40.00" {
		t.Fatalf("expected max percentage 40.00, got %s", limits.MaxPercentage)
	}
	// 40% x 15 = 6
	if limits.MaxFixed.String() != "6.00" {
		t.Fatalf("expected max fixed 6.00, got %s", limits.MaxFixed)
	}
}

func TestPartnerLimitsForFixedAffiliate(t *testing.T) {
	spec := CommissionSpec{
		Kind:  constants.CommissionModeFixed,
		Value: models.NewMoneyFromDecimal(decimal.NewFromInt(6)),
	}
	limits, err := PartnerLimitsFor(spec, money(t, "15"))
	if err != nil {
		t.Fatalf("limits failed: %v", err)
	}
	// 6 / 15 x 100 = 40
	if limits.MaxPercentage.String() != "40.00" {
		t.Fatalf("expected max percentage 40.00, got %s", limits.MaxPercentage)
	}
	if limits.MaxFixed.String() != "6.00" {
		t.Fatalf("expected max fixed 6.00, got %s", limits.MaxFixed)
	}
}

func TestPartnerLimitsForPercentageCappedAtHundred(t *testing.T) {
	// 固定佣金大于基准充值时比例上限封顶 100%
	spec := CommissionSpec{
		Kind:  constants.CommissionModeFixed,
		Value: models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
	}
	limits, err := PartnerLimitsFor(spec, money(t, "15"))
	if err != nil {
		t.Fatalf("limits failed: %v", err)
	}
	if limits.MaxPercentage.String() != "100.00" {
		t.Fatalf("expected capped 100.00, got %s", limits.MaxPercentage)
	}
}

func TestPartnerLimitsForInvalidMinDeposit(t *testing.T) {
	spec := CommissionSpec{Kind: constants.CommissionModePercentage, Value: money(t, "40")}
	if _, err := PartnerLimitsFor(spec, models.Money{}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestValidatePartnerCommissionGrid(t *testing.T) {
	minDeposit := money(t, "15")
	pctAffiliate := CommissionSpec{Kind: constants.CommissionModePercentage, Value: money(t, "40")}
	fixedAffiliate := CommissionSpec{Kind: constants.CommissionModeFixed, Value: money(t, "6")}

	cases := []struct {
		name          string
		affiliateSpec CommissionSpec
		partnerKind   string
		partnerValue  string
		wantErr       error
	}{
		{"pct_affiliate_pct_partner_within", pctAffiliate, constants.CommissionModePercentage, "40", nil},
		{"pct_affiliate_pct_partner_exceeds", pctAffiliate, constants.CommissionModePercentage, "40.01", ErrPartnerCommissionExceedsCap},
		{"pct_affiliate_fixed_partner_within", pctAffiliate, constants.CommissionModeFixed, "6", nil},
		{"pct_affiliate_fixed_partner_exceeds", pctAffiliate, constants.CommissionModeFixed, "6.01", ErrPartnerCommissionExceedsCap},
		{"fixed_affiliate_fixed_partner_within", fixedAffiliate, constants.CommissionModeFixed, "5.99", nil},
		{"fixed_affiliate_fixed_partner_exceeds", fixedAffiliate, constants.CommissionModeFixed, "7", ErrPartnerCommissionExceedsCap},
		{"fixed_affiliate_pct_partner_within", fixedAffiliate, constants.CommissionModePercentage, "39.99", nil},
		{"fixed_affiliate_pct_partner_exceeds", fixedAffiliate, constants.CommissionModePercentage, "41", ErrPartnerCommissionExceedsCap},
		{"zero_value_rejected", pctAffiliate, constants.CommissionModePercentage, "0", ErrInvalidAmount},
		{"unknown_kind_rejected", pctAffiliate, "revenue-share", "10", ErrInvalidCommissionKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePartnerCommission(tc.affiliateSpec, tc.partnerKind, money(t, tc.partnerValue), minDeposit)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
