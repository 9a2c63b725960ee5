package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/models"
	"github.com/refledger/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ledgerTestEnv struct {
	db           *gorm.DB
	tierSvc      *TierService
	walletSvc    *WalletService
	conversionSv *ConversionService
	affiliateSv  *AffiliateService
	reconcileSv  *ReconcileService
}

func setupLedgerTest(t *testing.T) *ledgerTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.TierConfig{},
		&models.Affiliate{},
		&models.Partner{},
		&models.PartnerCode{},
		&models.Conversion{},
		&models.Wallet{},
		&models.WalletTransaction{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	for _, tier := range models.DefaultTierConfigs() {
		cfg := tier
		if err := db.Create(&cfg).Error; err != nil {
			t.Fatalf("seed tier %s failed: %v", tier.Tier, err)
		}
	}

	tierRepo := repository.NewTierRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)
	conversionRepo := repository.NewConversionRepository(db)
	walletRepo := repository.NewWalletRepository(db)

	minDeposit := models.NewMoneyFromDecimal(decimal.NewFromInt(15))
	tierSvc := NewTierService(tierRepo)
	walletSvc := NewWalletService(walletRepo, affiliateRepo, partnerRepo, tierSvc)
	conversionSvc := NewConversionService(conversionRepo, affiliateRepo, partnerRepo, tierSvc, walletSvc, minDeposit)
	affiliateSvc := NewAffiliateService(affiliateRepo, partnerRepo, tierSvc, minDeposit, constants.TierBronze)
	reconcileSvc := NewReconcileService(conversionRepo, affiliateRepo, partnerRepo, walletSvc,
		decimal.RequireFromString("0.01"), time.Minute)

	return &ledgerTestEnv{
		db:           db,
		tierSvc:      tierSvc,
		walletSvc:    walletSvc,
		conversionSv: conversionSvc,
		affiliateSv:  affiliateSvc,
		reconcileSv:  reconcileSvc,
	}
}

func createLedgerTestAffiliate(t *testing.T, db *gorm.DB, email, tier, mode string) *models.Affiliate {
	t.Helper()

	row := models.Affiliate{
		Name:           "tester",
		Email:          email,
		Tier:           tier,
		CommissionMode: mode,
		Status:         constants.AffiliateStatusActive,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	return &row
}

func createLedgerTestPartner(t *testing.T, db *gorm.DB, affiliateID uint, email, mode string, value decimal.Decimal) *models.Partner {
	t.Helper()

	row := models.Partner{
		AffiliateID:    affiliateID,
		Name:           "partner",
		Email:          email,
		CommissionMode: mode,
		Status:         constants.AffiliateStatusActive,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if mode == constants.CommissionModeFixed {
		row.CustomFixedAmount = models.NewMoneyFromDecimal(value)
	} else {
		row.CustomRate = models.NewMoneyFromDecimal(value)
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create partner failed: %v", err)
	}
	return &row
}

func reloadAffiliate(t *testing.T, db *gorm.DB, id uint) *models.Affiliate {
	t.Helper()
	var row models.Affiliate
	if err := db.First(&row, id).Error; err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	return &row
}

func reloadPartner(t *testing.T, db *gorm.DB, id uint) *models.Partner {
	t.Helper()
	var row models.Partner
	if err := db.First(&row, id).Error; err != nil {
		t.Fatalf("reload partner failed: %v", err)
	}
	return &row
}

func countWalletTransactions(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.WalletTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	return count
}

func TestRecordDepositGoldAffiliate(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "gold@example.com", constants.TierGold, constants.CommissionModePercentage)

	conversions, err := env.conversionSv.RecordDeposit(RecordDepositInput{
		DepositID:   "dep-100",
		UserID:      7,
		Amount:      money(t, "100"),
		AffiliateID: affiliate.ID,
	})
	if err != nil {
		t.Fatalf("record deposit failed: %v", err)
	}
	if len(conversions) != 1 {
		t.Fatalf("expected 1 conversion, got %d", len(conversions))
	}
	// 金牌 20% x 100 = 20
	if conversions[0].Commission.String() != "20.00" {
		t.Fatalf("expected commission 20.00, got %s", conversions[0].Commission)
	}
	if conversions[0].Status != constants.ConversionStatusPending {
		t.Fatalf("expected pending, got %s", conversions[0].Status)
	}

	reloaded := reloadAffiliate(t, env.db, affiliate.ID)
	if reloaded.PendingEarnings.String() != "20.00" || reloaded.TotalEarnings.String() != "20.00" {
		t.Fatalf("expected pending/total 20.00, got %s/%s", reloaded.PendingEarnings, reloaded.TotalEarnings)
	}
	if reloaded.ApprovedEarnings.String() != "0.00" {
		t.Fatalf("expected approved 0.00, got %s", reloaded.ApprovedEarnings)
	}
}

func TestRecordDepositFixedModeAffiliate(t *testing.T) {
	env := setupLedgerTest(t)
	// 无等级档案走自定义固定佣金
	affiliate := createLedgerTestAffiliate(t, env.db, "fixed@example.com", "", constants.CommissionModeFixed)
	if err := env.db.Model(&models.Affiliate{}).Where("id = ?", affiliate.ID).
		Update("custom_fixed_amount", "10").Error; err != nil {
		t.Fatalf("set fixed amount failed: %v", err)
	}

	conversions, err := env.conversionSv.RecordDeposit(RecordDepositInput{
		DepositID:   "dep-150",
		UserID:      6,
		Amount:      money(t, "150"),
		AffiliateID: affiliate.ID,
	})
	if err != nil {
		t.Fatalf("record deposit failed: %v", err)
	}
	// 固定佣金不随充值金额缩放
	if conversions[0].Commission.String() != "10.00" {
		t.Fatalf("expected commission 10.00, got %s", conversions[0].Commission)
	}
	if conversions[0].CommissionKind != constants.CommissionModeFixed {
		t.Fatalf("expected fixed kind, got %s", conversions[0].CommissionKind)
	}

	if _, err := env.conversionSv.ApplyDepositStatus("dep-150", constants.DepositStatusCompleted); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	var txn models.WalletTransaction
	if err := env.db.First(&txn).Error; err != nil {
		t.Fatalf("load transaction failed: %v", err)
	}
	if txn.Amount.String() != "10.00" || txn.BalanceBefore.String() != "0.00" || txn.BalanceAfter.String() != "10.00" {
		t.Fatalf("unexpected transaction: amount %s, %s -> %s", txn.Amount, txn.BalanceBefore, txn.BalanceAfter)
	}
	reloaded := reloadAffiliate(t, env.db, affiliate.ID)
	if reloaded.ApprovedEarnings.String() != "10.00" {
		t.Fatalf("expected approved 10.00, got %s", reloaded.ApprovedEarnings)
	}
}

func TestRecordDepositWithPartnerAttribution(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "diamond@example.com", constants.TierDiamond, constants.CommissionModePercentage)
	partner := createLedgerTestPartner(t, env.db, affiliate.ID, "p1@example.com", constants.CommissionModeFixed, decimal.NewFromInt(5))

	conversions, err := env.conversionSv.RecordDeposit(RecordDepositInput{
		DepositID:   "dep-200",
		UserID:      8,
		Amount:      money(t, "100"),
		AffiliateID: affiliate.ID,
		PartnerID:   &partner.ID,
	})
	if err != nil {
		t.Fatalf("record deposit failed: %v", err)
	}
	if len(conversions) != 2 {
		t.Fatalf("expected 2 conversions, got %d", len(conversions))
	}
	// 钻石 40% x 100 = 40，合伙人固定 5；合伙人事件不挤占推广人事件
	if conversions[0].Commission.String() != "40.00" {
		t.Fatalf("expected affiliate commission 40.00, got %s", conversions[0].Commission)
	}
	if conversions[1].Commission.String() != "5.00" {
		t.Fatalf("expected partner commission 5.00, got %s", conversions[1].Commission)
	}
	if conversions[1].BeneficiaryType != constants.WalletOwnerPartner {
		t.Fatalf("expected partner beneficiary, got %s", conversions[1].BeneficiaryType)
	}
	if conversions[1].AffiliateID != affiliate.ID {
		t.Fatalf("expected attribution lineage to affiliate %d, got %d", affiliate.ID, conversions[1].AffiliateID)
	}

	reloadedPartner := reloadPartner(t, env.db, partner.ID)
	if reloadedPartner.PendingEarnings.String() != "5.00" {
		t.Fatalf("expected partner pending 5.00, got %s", reloadedPartner.PendingEarnings)
	}
}

func TestRecordDepositIdempotentPerDeposit(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "idem@example.com", constants.TierGold, constants.CommissionModePercentage)

	input := RecordDepositInput{
		DepositID:   "dep-300",
		UserID:      9,
		Amount:      money(t, "50"),
		AffiliateID: affiliate.ID,
	}
	if _, err := env.conversionSv.RecordDeposit(input); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	if _, err := env.conversionSv.RecordDeposit(input); err != nil {
		t.Fatalf("second record failed: %v", err)
	}

	var count int64
	if err := env.db.Model(&models.Conversion{}).Where("deposit_id = ?", "dep-300").Count(&count).Error; err != nil {
		t.Fatalf("count conversions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 conversion after replay, got %d", count)
	}
	reloaded := reloadAffiliate(t, env.db, affiliate.ID)
	if reloaded.PendingEarnings.String() != "10.00" {
		t.Fatalf("expected pending 10.00 after replay, got %s", reloaded.PendingEarnings)
	}
}

func TestRecordDepositRejectsPartnerOverCap(t *testing.T) {
	env := setupLedgerTest(t)
	// 铜牌 10%，基准充值 15 元换算固定上限 1.50
	affiliate := createLedgerTestAffiliate(t, env.db, "bronze@example.com", constants.TierBronze, constants.CommissionModePercentage)
	partner := createLedgerTestPartner(t, env.db, affiliate.ID, "greedy@example.com", constants.CommissionModeFixed, decimal.NewFromInt(5))

	_, err := env.conversionSv.RecordDeposit(RecordDepositInput{
		DepositID:   "dep-400",
		UserID:      10,
		Amount:      money(t, "100"),
		AffiliateID: affiliate.ID,
		PartnerID:   &partner.ID,
	})
	if !errors.Is(err, ErrPartnerCommissionExceedsCap) {
		t.Fatalf("expected ErrPartnerCommissionExceedsCap, got %v", err)
	}

	var count int64
	env.db.Model(&models.Conversion{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no conversions written, got %d", count)
	}
}

func TestRecordDepositRejectsForeignPartner(t *testing.T) {
	env := setupLedgerTest(t)
	affiliateA := createLedgerTestAffiliate(t, env.db, "owner-a@example.com", constants.TierGold, constants.CommissionModePercentage)
	affiliateB := createLedgerTestAffiliate(t, env.db, "owner-b@example.com", constants.TierGold, constants.CommissionModePercentage)
	partnerOfB := createLedgerTestPartner(t, env.db, affiliateB.ID, "pb@example.com", constants.CommissionModeFixed, decimal.NewFromInt(2))

	_, err := env.conversionSv.RecordDeposit(RecordDepositInput{
		DepositID:   "dep-500",
		UserID:      11,
		Amount:      money(t, "100"),
		AffiliateID: affiliateA.ID,
		PartnerID:   &partnerOfB.ID,
	})
	if !errors.Is(err, ErrPartnerNotFound) {
		t.Fatalf("expected ErrPartnerNotFound for foreign partner, got %v", err)
	}
}

func TestApplyDepositStatusCompletedCreditsWallet(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "credit@example.com", constants.TierGold, constants.CommissionModePercentage)

	if _, err := env.conversionSv.RecordDeposit(RecordDepositInput{
		DepositID: "dep-600", UserID: 12, Amount: money(t, "100"), AffiliateID: affiliate.ID,
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	updated, err := env.conversionSv.ApplyDepositStatus("dep-600", constants.DepositStatusCompleted)
	if err != nil {
		t.Fatalf("apply completed failed: %v", err)
	}
	if len(updated) != 1 || updated[0].Status != constants.ConversionStatusCompleted {
		t.Fatalf("expected completed conversion, got %+v", updated)
	}

	wallet, err := env.walletSvc.GetWalletByOwner(constants.WalletOwnerAffiliate, affiliate.ID)
	if err != nil {
		t.Fatalf("get wallet failed: %v", err)
	}
	if wallet.Balance.String() != "20.00" {
		t.Fatalf("expected balance 20.00, got %s", wallet.Balance)
	}

	reloaded := reloadAffiliate(t, env.db, affiliate.ID)
	if reloaded.PendingEarnings.String() != "0.00" || reloaded.ApprovedEarnings.String() != "20.00" {
		t.Fatalf("expected pending 0 / approved 20, got %s/%s", reloaded.PendingEarnings, reloaded.ApprovedEarnings)
	}
	if reloaded.TotalEarnings.String() != "20.00" {
		t.Fatalf("expected total 20.00, got %s", reloaded.TotalEarnings)
	}

	// 重复投递不产生第二条流水
	if _, err := env.conversionSv.ApplyDepositStatus("dep-600", constants.DepositStatusCompleted); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if n := countWalletTransactions(t, env.db); n != 1 {
		t.Fatalf("expected 1 wallet transaction after replay, got %d", n)
	}
}

func TestApplyDepositStatusCancelBeforeCredit(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "cancel@example.com", constants.TierGold, constants.CommissionModePercentage)

	if _, err := env.conversionSv.RecordDeposit(RecordDepositInput{
		DepositID: "dep-700", UserID: 13, Amount: money(t, "100"), AffiliateID: affiliate.ID,
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	if _, err := env.conversionSv.ApplyDepositStatus("dep-700", constants.DepositStatusCancelled); err != nil {
		t.Fatalf("apply cancelled failed: %v", err)
	}

	reloaded := reloadAffiliate(t, env.db, affiliate.ID)
	if reloaded.PendingEarnings.String() != "0.00" || reloaded.TotalEarnings.String() != "0.00" {
		t.Fatalf("expected pending/total rolled back to 0, got %s/%s", reloaded.PendingEarnings, reloaded.TotalEarnings)
	}
	if n := countWalletTransactions(t, env.db); n != 0 {
		t.Fatalf("expected no wallet transactions, got %d", n)
	}

	// 取消后的迟到 completed 不再入账
	if _, err := env.conversionSv.ApplyDepositStatus("dep-700", constants.DepositStatusCompleted); err != nil {
		t.Fatalf("late completed failed: %v", err)
	}
	if n := countWalletTransactions(t, env.db); n != 0 {
		t.Fatalf("expected still no transactions, got %d", n)
	}
}

func TestApplyDepositStatusReverseAfterCredit(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "reverse@example.com", constants.TierGold, constants.CommissionModePercentage)

	if _, err := env.conversionSv.RecordDeposit(RecordDepositInput{
		DepositID: "dep-800", UserID: 14, Amount: money(t, "100"), AffiliateID: affiliate.ID,
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, err := env.conversionSv.ApplyDepositStatus("dep-800", constants.DepositStatusCompleted); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if _, err := env.conversionSv.ApplyDepositStatus("dep-800", constants.DepositStatusExpired); err != nil {
		t.Fatalf("expire failed: %v", err)
	}

	wallet, err := env.walletSvc.GetWalletByOwner(constants.WalletOwnerAffiliate, affiliate.ID)
	if err != nil {
		t.Fatalf("get wallet failed: %v", err)
	}
	if wallet.Balance.String() != "0.00" {
		t.Fatalf("expected balance back to 0.00, got %s", wallet.Balance)
	}
	if n := countWalletTransactions(t, env.db); n != 2 {
		t.Fatalf("expected credit + reversal, got %d transactions", n)
	}

	reloaded := reloadAffiliate(t, env.db, affiliate.ID)
	if reloaded.ApprovedEarnings.String() != "0.00" || reloaded.TotalEarnings.String() != "0.00" {
		t.Fatalf("expected approved/total 0 after reverse, got %s/%s", reloaded.ApprovedEarnings, reloaded.TotalEarnings)
	}
}

func TestRateFrozenAtRecordTime(t *testing.T) {
	env := setupLedgerTest(t)
	affiliate := createLedgerTestAffiliate(t, env.db, "frozen@example.com", constants.TierGold, constants.CommissionModePercentage)

	if _, err := env.conversionSv.RecordDeposit(RecordDepositInput{
		DepositID: "dep-900", UserID: 15, Amount: money(t, "100"), AffiliateID: affiliate.ID,
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	// 事件落账后调整金牌费率，不影响已冻结的快照
	cfg, err := env.tierSvc.GetByTier(constants.TierGold)
	if err != nil || cfg == nil {
		t.Fatalf("get tier failed: %v", err)
	}
	cfg.PercentageRate = models.NewMoneyFromDecimal(decimal.NewFromInt(35))
	if err := env.tierSvc.Save(cfg); err != nil {
		t.Fatalf("save tier failed: %v", err)
	}

	if _, err := env.conversionSv.ApplyDepositStatus("dep-900", constants.DepositStatusCompleted); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	wallet, err := env.walletSvc.GetWalletByOwner(constants.WalletOwnerAffiliate, affiliate.ID)
	if err != nil {
		t.Fatalf("get wallet failed: %v", err)
	}
	if wallet.Balance.String() != "20.00" {
		t.Fatalf("expected frozen 20.00, got %s", wallet.Balance)
	}

	// 新事件使用新费率
	if _, err := env.conversionSv.RecordDeposit(RecordDepositInput{
		DepositID: "dep-901", UserID: 15, Amount: money(t, "100"), AffiliateID: affiliate.ID,
	}); err != nil {
		t.Fatalf("record after change failed: %v", err)
	}
	var latest models.Conversion
	if err := env.db.Where("deposit_id = ?", "dep-901").First(&latest).Error; err != nil {
		t.Fatalf("load latest failed: %v", err)
	}
	if latest.Commission.String() != "35.00" {
		t.Fatalf("expected new rate commission 35.00, got %s", latest.Commission)
	}
}

func TestApplyDepositStatusUnknownDeposit(t *testing.T) {
	env := setupLedgerTest(t)
	if _, err := env.conversionSv.ApplyDepositStatus("missing", constants.DepositStatusCompleted); !errors.Is(err, ErrConversionNotFound) {
		t.Fatalf("expected ErrConversionNotFound, got %v", err)
	}
	if _, err := env.conversionSv.ApplyDepositStatus("missing", "refunded"); !errors.Is(err, ErrDepositStatusInvalid) {
		t.Fatalf("expected ErrDepositStatusInvalid, got %v", err)
	}
}
