package service

import (
	"errors"
	"testing"
	"time"

	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func createLedgerTestConversion(t *testing.T, db *gorm.DB, depositID string, beneficiaryType string, beneficiaryID uint, commission string) *models.Conversion {
	t.Helper()

	now := time.Now()
	row := models.Conversion{
		AffiliateID:     beneficiaryID,
		BeneficiaryType: beneficiaryType,
		BeneficiaryID:   beneficiaryID,
		UserID:          1,
		DepositID:       depositID,
		ConversionType:  constants.ConversionTypeDeposit,
		ConversionValue: money(t, "100"),
		Commission:      money(t, commission),
		CommissionRate:  money(t, "20"),
		CommissionKind:  constants.CommissionModePercentage,
		Status:          constants.ConversionStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create conversion failed: %v", err)
	}
	return &row
}

func TestCreditIdempotent(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "wallet-idem@example.com", constants.TierGold, constants.CommissionModePercentage)
	conversion := createLedgerTestConversion(t, env.db, "w-dep-1", constants.WalletOwnerAffiliate, affiliate.ID, "20")

	first, err := env.walletSvc.Credit(conversion)
	if err != nil {
		t.Fatalf("first credit failed: %v", err)
	}
	second, err := env.walletSvc.Credit(conversion)
	if err != nil {
		t.Fatalf("second credit failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same transaction on replay, got %d and %d", first.ID, second.ID)
	}
	if n := countWalletTransactions(t, env.db); n != 1 {
		t.Fatalf("expected 1 transaction, got %d", n)
	}

	wallet, err := env.walletSvc.GetWalletByOwner(constants.WalletOwnerAffiliate, affiliate.ID)
	if err != nil {
		t.Fatalf("get wallet failed: %v", err)
	}
	if wallet.Balance.String() != "20.00" {
		t.Fatalf("expected balance 20.00, got %s", wallet.Balance)
	}
}

func TestCreditBalanceContinuity(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "wallet-chain@example.com", constants.TierGold, constants.CommissionModePercentage)

	convA := createLedgerTestConversion(t, env.db, "w-dep-2a", constants.WalletOwnerAffiliate, affiliate.ID, "20")
	convB := createLedgerTestConversion(t, env.db, "w-dep-2b", constants.WalletOwnerAffiliate, affiliate.ID, "7.25")

	txnA, err := env.walletSvc.Credit(convA)
	if err != nil {
		t.Fatalf("credit A failed: %v", err)
	}
	txnB, err := env.walletSvc.Credit(convB)
	if err != nil {
		t.Fatalf("credit B failed: %v", err)
	}

	if txnA.BalanceBefore.String() != "0.00" || txnA.BalanceAfter.String() != "20.00" {
		t.Fatalf("unexpected first transaction balances: %s -> %s", txnA.BalanceBefore, txnA.BalanceAfter)
	}
	if txnB.BalanceBefore.String() != txnA.BalanceAfter.String() {
		t.Fatalf("balance chain broken: %s != %s", txnB.BalanceBefore, txnA.BalanceAfter)
	}
	if txnB.BalanceAfter.String() != "27.25" {
		t.Fatalf("expected 27.25, got %s", txnB.BalanceAfter)
	}
}

func TestReverseWithoutCreditIsNoop(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "wallet-noop@example.com", constants.TierGold, constants.CommissionModePercentage)
	conversion := createLedgerTestConversion(t, env.db, "w-dep-3", constants.WalletOwnerAffiliate, affiliate.ID, "20")

	txn, err := env.walletSvc.Reverse(conversion)
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if txn != nil {
		t.Fatalf("expected no transaction for never-credited conversion, got %+v", txn)
	}
	if n := countWalletTransactions(t, env.db); n != 0 {
		t.Fatalf("expected no transactions, got %d", n)
	}
}

func TestReverseIdempotentAndNegativeAllowed(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "wallet-neg@example.com", constants.TierGold, constants.CommissionModePercentage)

	convA := createLedgerTestConversion(t, env.db, "w-dep-4a", constants.WalletOwnerAffiliate, affiliate.ID, "20")
	convB := createLedgerTestConversion(t, env.db, "w-dep-4b", constants.WalletOwnerAffiliate, affiliate.ID, "5")

	if _, err := env.walletSvc.Credit(convA); err != nil {
		t.Fatalf("credit A failed: %v", err)
	}
	if _, err := env.walletSvc.Credit(convB); err != nil {
		t.Fatalf("credit B failed: %v", err)
	}

	// 模拟余额已被提走后再冲正：手工清零余额
	if err := env.db.Model(&models.Wallet{}).
		Where("owner_type = ? AND owner_id = ?", constants.WalletOwnerAffiliate, affiliate.ID).
		Update("balance", "0").Error; err != nil {
		t.Fatalf("zero balance failed: %v", err)
	}

	rev, err := env.walletSvc.Reverse(convA)
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if rev.Amount.String() != "-20.00" {
		t.Fatalf("expected reversal amount -20.00, got %s", rev.Amount)
	}
	if rev.BalanceAfter.String() != "-20.00" {
		t.Fatalf("expected negative balance -20.00, got %s", rev.BalanceAfter)
	}

	again, err := env.walletSvc.Reverse(convA)
	if err != nil {
		t.Fatalf("reverse replay failed: %v", err)
	}
	if again.ID != rev.ID {
		t.Fatalf("expected same reversal transaction, got %d and %d", again.ID, rev.ID)
	}
}

func TestCreditPromotesAffiliateTier(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "promote@example.com", constants.TierBronze, constants.CommissionModePercentage)
	conversion := createLedgerTestConversion(t, env.db, "w-dep-5", constants.WalletOwnerAffiliate, affiliate.ID, "600")

	if _, err := env.walletSvc.Credit(conversion); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	// 已确认 600 直接跨过白银(100)落到黄金(500)
	reloaded := reloadAffiliate(t, env.db, affiliate.ID)
	if reloaded.Tier != constants.TierGold {
		t.Fatalf("expected promotion to gold, got %s", reloaded.Tier)
	}
}

func TestPromotionSkipsSpecialTier(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "special@example.com", constants.TierBronze, constants.CommissionModePercentage)
	conversion := createLedgerTestConversion(t, env.db, "w-dep-6", constants.WalletOwnerAffiliate, affiliate.ID, "50000")

	if _, err := env.walletSvc.Credit(conversion); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	reloaded := reloadAffiliate(t, env.db, affiliate.ID)
	if reloaded.Tier != constants.TierDiamond {
		t.Fatalf("expected diamond (special excluded from auto promotion), got %s", reloaded.Tier)
	}
}

func TestGetEarningsWithoutWallet(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "earnings@example.com", constants.TierGold, constants.CommissionModePercentage)

	summary, err := env.walletSvc.GetEarnings(constants.WalletOwnerAffiliate, affiliate.ID)
	if err != nil {
		t.Fatalf("get earnings failed: %v", err)
	}
	if summary.Balance.String() != "0.00" {
		t.Fatalf("expected zero balance without wallet, got %s", summary.Balance)
	}

	if _, err := env.walletSvc.GetEarnings(constants.WalletOwnerAffiliate, 9999); !errors.Is(err, ErrAffiliateNotFound) {
		t.Fatalf("expected ErrAffiliateNotFound, got %v", err)
	}
	if _, err := env.walletSvc.GetEarnings("vendor", affiliate.ID); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound for unknown owner type, got %v", err)
	}
}

func TestCreditRejectsNonPositiveCommission(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "zero@example.com", constants.TierGold, constants.CommissionModePercentage)

	now := time.Now()
	row := models.Conversion{
		AffiliateID:     affiliate.ID,
		BeneficiaryType: constants.WalletOwnerAffiliate,
		BeneficiaryID:   affiliate.ID,
		UserID:          1,
		DepositID:       "w-dep-7",
		ConversionType:  constants.ConversionTypeDeposit,
		ConversionValue: money(t, "100"),
		Commission:      models.NewMoneyFromDecimal(decimal.Zero),
		CommissionKind:  constants.CommissionModePercentage,
		Status:          constants.ConversionStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := env.db.Create(&row).Error; err != nil {
		t.Fatalf("create conversion failed: %v", err)
	}

	if _, err := env.walletSvc.Credit(&row); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
