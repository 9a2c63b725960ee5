package service

import (
	"fmt"
	"time"

	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/logger"
	"github.com/refledger/internal/models"
	"github.com/refledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService 钱包台账服务
// 钱包与流水的唯一写入方，入账/冲正与受益人汇总字段同事务更新
type WalletService struct {
	walletRepo    repository.WalletRepository
	affiliateRepo repository.AffiliateRepository
	partnerRepo   repository.PartnerRepository
	tierSvc       *TierService
}

// EarningsSummary 受益人收益汇总
type EarningsSummary struct {
	OwnerType        string       `json:"owner_type"`
	OwnerID          uint         `json:"owner_id"`
	TotalEarnings    models.Money `json:"total_earnings"`
	PendingEarnings  models.Money `json:"pending_earnings"`
	ApprovedEarnings models.Money `json:"approved_earnings"`
	PaidEarnings     models.Money `json:"paid_earnings"`
	Balance          models.Money `json:"balance"`
}

// NewWalletService 创建钱包台账服务
func NewWalletService(
	walletRepo repository.WalletRepository,
	affiliateRepo repository.AffiliateRepository,
	partnerRepo repository.PartnerRepository,
	tierSvc *TierService,
) *WalletService {
	return &WalletService{
		walletRepo:    walletRepo,
		affiliateRepo: affiliateRepo,
		partnerRepo:   partnerRepo,
		tierSvc:       tierSvc,
	}
}

// commissionReference 入账幂等键
func commissionReference(conversionID uint) string {
	return fmt.Sprintf("conversion:%d:commission", conversionID)
}

// reversalReference 冲正幂等键
func reversalReference(conversionID uint) string {
	return fmt.Sprintf("conversion:%d:reversal", conversionID)
}

// Credit 佣金入账（独立事务）
func (s *WalletService) Credit(conversion *models.Conversion) (*models.WalletTransaction, error) {
	var result *models.WalletTransaction
	err := s.walletRepo.Transaction(func(tx *gorm.DB) error {
		txn, err := s.CreditTx(tx, conversion)
		if err != nil {
			return err
		}
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreditTx 事务内佣金入账
// 幂等：同一佣金事件重复入账时原样返回已有流水
func (s *WalletService) CreditTx(tx *gorm.DB, conversion *models.Conversion) (*models.WalletTransaction, error) {
	if conversion == nil || conversion.ID == 0 {
		return nil, ErrConversionNotFound
	}
	amount := conversion.Commission.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	repo := s.walletRepo.WithTx(tx)
	reference := commissionReference(conversion.ID)
	existing, err := repo.GetTransactionByReference(reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	wallet, err := s.ensureWalletForUpdate(repo, conversion.BeneficiaryType, conversion.BeneficiaryID, now)
	if err != nil {
		return nil, err
	}

	before := wallet.Balance.Decimal.Round(2)
	after := before.Add(amount).Round(2)
	wallet.Balance = models.NewMoneyFromDecimal(after)
	wallet.TotalEarned = models.NewMoneyFromDecimal(wallet.TotalEarned.Decimal.Add(amount))
	wallet.LastTransactionAt = &now
	wallet.UpdatedAt = now
	if err := repo.Update(wallet); err != nil {
		return nil, err
	}

	txn := &models.WalletTransaction{
		WalletID:      wallet.ID,
		Type:          constants.WalletTxnTypeCommission,
		Direction:     constants.WalletTxnDirectionIn,
		Amount:        models.NewMoneyFromDecimal(amount),
		BalanceBefore: models.NewMoneyFromDecimal(before),
		BalanceAfter:  models.NewMoneyFromDecimal(after),
		Reference:     reference,
		ReferenceType: constants.TxnReferenceTypeConversion,
		ReferenceID:   conversion.ID,
		Status:        constants.WalletTxnStatusCompleted,
		ProcessedAt:   &now,
		CreatedAt:     now,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, err
	}

	// 入账同时把该笔佣金从待确认挪到已确认
	if err := s.ApplyAggregateDeltasTx(tx, conversion.BeneficiaryType, conversion.BeneficiaryID,
		amount.Neg(), amount, decimal.Zero, true); err != nil {
		return nil, err
	}
	return txn, nil
}

// Reverse 佣金冲正（独立事务）
func (s *WalletService) Reverse(conversion *models.Conversion) (*models.WalletTransaction, error) {
	var result *models.WalletTransaction
	err := s.walletRepo.Transaction(func(tx *gorm.DB) error {
		txn, err := s.ReverseTx(tx, conversion)
		if err != nil {
			return err
		}
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReverseTx 事务内佣金冲正：追加负数流水，不改动原流水
// 未入账过的事件是 no-op；冲正导致负余额是允许的（欠款回收），记 warn
func (s *WalletService) ReverseTx(tx *gorm.DB, conversion *models.Conversion) (*models.WalletTransaction, error) {
	if conversion == nil || conversion.ID == 0 {
		return nil, ErrConversionNotFound
	}

	repo := s.walletRepo.WithTx(tx)
	reference := reversalReference(conversion.ID)
	existing, err := repo.GetTransactionByReference(reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	credited, err := repo.GetTransactionByReference(commissionReference(conversion.ID))
	if err != nil {
		return nil, err
	}
	if credited == nil {
		return nil, nil
	}

	amount := credited.Amount.Decimal.Round(2)
	now := time.Now()
	wallet, err := s.ensureWalletForUpdate(repo, conversion.BeneficiaryType, conversion.BeneficiaryID, now)
	if err != nil {
		return nil, err
	}

	before := wallet.Balance.Decimal.Round(2)
	after := before.Sub(amount).Round(2)
	if after.IsNegative() {
		logger.Warnw("wallet_balance_negative",
			"wallet_id", wallet.ID,
			"owner_type", wallet.OwnerType,
			"owner_id", wallet.OwnerID,
			"balance_after", after.StringFixed(2),
			"conversion_id", conversion.ID,
		)
	}
	wallet.Balance = models.NewMoneyFromDecimal(after)
	wallet.TotalEarned = models.NewMoneyFromDecimal(wallet.TotalEarned.Decimal.Sub(amount))
	wallet.LastTransactionAt = &now
	wallet.UpdatedAt = now
	if err := repo.Update(wallet); err != nil {
		return nil, err
	}

	txn := &models.WalletTransaction{
		WalletID:      wallet.ID,
		Type:          constants.WalletTxnTypeReversal,
		Direction:     constants.WalletTxnDirectionOut,
		Amount:        models.NewMoneyFromDecimal(amount.Neg()),
		BalanceBefore: models.NewMoneyFromDecimal(before),
		BalanceAfter:  models.NewMoneyFromDecimal(after),
		Reference:     reference,
		ReferenceType: constants.TxnReferenceTypeConversion,
		ReferenceID:   conversion.ID,
		Status:        constants.WalletTxnStatusCompleted,
		ProcessedAt:   &now,
		CreatedAt:     now,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, err
	}

	// 冲正把已确认与累计佣金一并回退
	if err := s.ApplyAggregateDeltasTx(tx, conversion.BeneficiaryType, conversion.BeneficiaryID,
		decimal.Zero, amount.Neg(), amount.Neg(), false); err != nil {
		return nil, err
	}
	return txn, nil
}

// ApplyAggregateDeltasTx 事务内调整受益人汇总字段（行锁）
// pendingDelta/approvedDelta/totalDelta 分别作用于待确认、已确认、累计佣金
func (s *WalletService) ApplyAggregateDeltasTx(tx *gorm.DB, ownerType string, ownerID uint,
	pendingDelta, approvedDelta, totalDelta decimal.Decimal, checkPromotion bool) error {
	switch ownerType {
	case constants.WalletOwnerAffiliate:
		affiliate, err := s.affiliateRepo.WithTx(tx).GetByIDForUpdate(ownerID)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return ErrAffiliateNotFound
		}
		affiliate.PendingEarnings = models.NewMoneyFromDecimal(affiliate.PendingEarnings.Decimal.Add(pendingDelta))
		affiliate.ApprovedEarnings = models.NewMoneyFromDecimal(affiliate.ApprovedEarnings.Decimal.Add(approvedDelta))
		affiliate.TotalEarnings = models.NewMoneyFromDecimal(affiliate.TotalEarnings.Decimal.Add(totalDelta))
		affiliate.UpdatedAt = time.Now()
		if err := s.affiliateRepo.WithTx(tx).Update(affiliate); err != nil {
			return err
		}
		if checkPromotion && approvedDelta.IsPositive() {
			return s.tierSvc.PromoteTx(tx, affiliate)
		}
		return nil
	case constants.WalletOwnerPartner:
		partner, err := s.partnerRepo.WithTx(tx).GetByIDForUpdate(ownerID)
		if err != nil {
			return err
		}
		if partner == nil {
			return ErrPartnerNotFound
		}
		partner.PendingEarnings = models.NewMoneyFromDecimal(partner.PendingEarnings.Decimal.Add(pendingDelta))
		partner.ApprovedEarnings = models.NewMoneyFromDecimal(partner.ApprovedEarnings.Decimal.Add(approvedDelta))
		partner.TotalEarnings = models.NewMoneyFromDecimal(partner.TotalEarnings.Decimal.Add(totalDelta))
		partner.UpdatedAt = time.Now()
		return s.partnerRepo.WithTx(tx).Update(partner)
	default:
		return ErrWalletNotFound
	}
}

// GetWalletByOwner 查询持有人钱包
func (s *WalletService) GetWalletByOwner(ownerType string, ownerID uint) (*models.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwner(ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}
	return wallet, nil
}

// ListTransactions 分页查询钱包流水
func (s *WalletService) ListTransactions(filter repository.WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	return s.walletRepo.ListTransactions(filter)
}

// GetEarnings 查询受益人收益汇总（钱包未创建时余额按 0 返回）
func (s *WalletService) GetEarnings(ownerType string, ownerID uint) (*EarningsSummary, error) {
	summary := &EarningsSummary{OwnerType: ownerType, OwnerID: ownerID}
	switch ownerType {
	case constants.WalletOwnerAffiliate:
		affiliate, err := s.affiliateRepo.GetByID(ownerID)
		if err != nil {
			return nil, err
		}
		if affiliate == nil {
			return nil, ErrAffiliateNotFound
		}
		summary.TotalEarnings = affiliate.TotalEarnings
		summary.PendingEarnings = affiliate.PendingEarnings
		summary.ApprovedEarnings = affiliate.ApprovedEarnings
		summary.PaidEarnings = affiliate.PaidEarnings
	case constants.WalletOwnerPartner:
		partner, err := s.partnerRepo.GetByID(ownerID)
		if err != nil {
			return nil, err
		}
		if partner == nil {
			return nil, ErrPartnerNotFound
		}
		summary.TotalEarnings = partner.TotalEarnings
		summary.PendingEarnings = partner.PendingEarnings
		summary.ApprovedEarnings = partner.ApprovedEarnings
		summary.PaidEarnings = partner.PaidEarnings
	default:
		return nil, ErrWalletNotFound
	}

	wallet, err := s.walletRepo.GetByOwner(ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		summary.Balance = wallet.Balance
	} else {
		summary.Balance = models.NewMoneyFromDecimal(decimal.Zero)
	}
	return summary, nil
}

// ensureWalletForUpdate 加锁获取钱包，不存在时创建后再锁定
func (s *WalletService) ensureWalletForUpdate(repo repository.WalletRepository, ownerType string, ownerID uint, now time.Time) (*models.Wallet, error) {
	wallet, err := repo.GetByOwnerForUpdate(ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}

	created := &models.Wallet{
		OwnerType: ownerType,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(created); err != nil {
		// 并发创建时回退到锁定读
		if existing, getErr := repo.GetByOwnerForUpdate(ownerType, ownerID); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	wallet, err = repo.GetByOwnerForUpdate(ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}
	return wallet, nil
}
