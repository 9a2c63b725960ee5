package service

import (
	"strings"
	"time"

	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/logger"
	"github.com/refledger/internal/models"
	"github.com/refledger/internal/repository"

	"gorm.io/gorm"
)

// ConversionService 佣金事件服务
// 负责把上游充值事件落成佣金事件，并驱动其状态流转
type ConversionService struct {
	conversionRepo repository.ConversionRepository
	affiliateRepo  repository.AffiliateRepository
	partnerRepo    repository.PartnerRepository
	tierSvc        *TierService
	walletSvc      *WalletService
	minDeposit     models.Money
}

// RecordDepositInput 充值创建事件输入
type RecordDepositInput struct {
	DepositID   string
	UserID      uint
	Amount      models.Money
	AffiliateID uint
	PartnerID   *uint
}

// NewConversionService 创建佣金事件服务
func NewConversionService(
	conversionRepo repository.ConversionRepository,
	affiliateRepo repository.AffiliateRepository,
	partnerRepo repository.PartnerRepository,
	tierSvc *TierService,
	walletSvc *WalletService,
	minDeposit models.Money,
) *ConversionService {
	return &ConversionService{
		conversionRepo: conversionRepo,
		affiliateRepo:  affiliateRepo,
		partnerRepo:    partnerRepo,
		tierSvc:        tierSvc,
		walletSvc:      walletSvc,
		minDeposit:     minDeposit,
	}
}

// RecordDeposit 充值创建时落佣金事件
// 费率与佣金金额在此处一次性解析并冻结；对 (充值单, 受益人) 幂等
// 归因到合伙人时额外生成一条合伙人事件，佣金受上游推广人上限约束
func (s *ConversionService) RecordDeposit(input RecordDepositInput) ([]models.Conversion, error) {
	depositID := strings.TrimSpace(input.DepositID)
	if depositID == "" {
		return nil, ErrDepositIDRequired
	}
	if !input.Amount.Decimal.IsPositive() {
		return nil, ErrInvalidAmount
	}

	affiliate, err := s.affiliateRepo.GetByID(input.AffiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrAffiliateNotFound
	}
	if affiliate.Status != constants.AffiliateStatusActive {
		return nil, ErrAffiliateDisabled
	}

	tierCfg, err := s.tierSvc.GetByTier(affiliate.Tier)
	if err != nil {
		return nil, err
	}
	affiliateSpec, err := ResolveAffiliateCommission(affiliate, tierCfg)
	if err != nil {
		return nil, err
	}

	var partner *models.Partner
	var partnerSpec CommissionSpec
	if input.PartnerID != nil && *input.PartnerID != 0 {
		partner, err = s.partnerRepo.GetByID(*input.PartnerID)
		if err != nil {
			return nil, err
		}
		if partner == nil || partner.AffiliateID != affiliate.ID {
			return nil, ErrPartnerNotFound
		}
		if partner.Status != constants.AffiliateStatusActive {
			return nil, ErrPartnerDisabled
		}
		partnerSpec, err = ResolvePartnerCommission(partner)
		if err != nil {
			return nil, err
		}
		if err := ValidatePartnerCommission(affiliateSpec, partnerSpec.Kind, partnerSpec.Value, s.minDeposit); err != nil {
			return nil, err
		}
	}

	var results []models.Conversion
	err = s.conversionRepo.Transaction(func(tx *gorm.DB) error {
		results = results[:0]

		affiliateRow, err := s.recordBeneficiaryTx(tx, input, constants.WalletOwnerAffiliate, affiliate.ID, affiliate.ID, nil, affiliateSpec)
		if err != nil {
			return err
		}
		results = append(results, *affiliateRow)

		if partner != nil {
			partnerRow, err := s.recordBeneficiaryTx(tx, input, constants.WalletOwnerPartner, partner.ID, affiliate.ID, &partner.ID, partnerSpec)
			if err != nil {
				return err
			}
			results = append(results, *partnerRow)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// recordBeneficiaryTx 事务内为单个受益人落事件，已存在时原样返回
func (s *ConversionService) recordBeneficiaryTx(tx *gorm.DB, input RecordDepositInput,
	beneficiaryType string, beneficiaryID, affiliateID uint, partnerID *uint, spec CommissionSpec) (*models.Conversion, error) {
	repo := s.conversionRepo.WithTx(tx)
	depositID := strings.TrimSpace(input.DepositID)

	existing, err := repo.GetByDepositAndBeneficiary(depositID, beneficiaryType, beneficiaryID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	commission := spec.CommissionFor(input.Amount)
	if !commission.Decimal.IsPositive() {
		return nil, ErrNoCommissionConfigured
	}

	now := time.Now()
	conversion := &models.Conversion{
		AffiliateID:     affiliateID,
		PartnerID:       partnerID,
		BeneficiaryType: beneficiaryType,
		BeneficiaryID:   beneficiaryID,
		UserID:          input.UserID,
		DepositID:       depositID,
		ConversionType:  constants.ConversionTypeDeposit,
		ConversionValue: input.Amount,
		Commission:      commission,
		CommissionRate:  spec.RateSnapshot(),
		CommissionKind:  spec.Kind,
		Status:          constants.ConversionStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repo.Create(conversion); err != nil {
		return nil, err
	}

	// 新事件计入待确认与累计佣金
	if err := s.walletSvc.ApplyAggregateDeltasTx(tx, beneficiaryType, beneficiaryID,
		commission.Decimal, decimalZero, commission.Decimal, false); err != nil {
		return nil, err
	}
	return conversion, nil
}

// ApplyDepositStatus 按上游充值单状态驱动佣金事件流转
// completed 入账、cancelled/expired 取消并冲正；整体幂等，重复投递不产生重复影响
func (s *ConversionService) ApplyDepositStatus(depositID, newStatus string) ([]models.Conversion, error) {
	depositID = strings.TrimSpace(depositID)
	if depositID == "" {
		return nil, ErrDepositIDRequired
	}

	var target string
	switch newStatus {
	case constants.DepositStatusCompleted:
		target = constants.ConversionStatusCompleted
	case constants.DepositStatusCancelled, constants.DepositStatusExpired:
		target = constants.ConversionStatusCancelled
	default:
		return nil, ErrDepositStatusInvalid
	}

	conversions, err := s.conversionRepo.ListByDepositID(depositID)
	if err != nil {
		return nil, err
	}
	if len(conversions) == 0 {
		return nil, ErrConversionNotFound
	}

	// 每个受益人只取一条候选；多条匹配按最近创建优先，绝不累加
	chosen := map[string]models.Conversion{}
	for _, conversion := range conversions {
		key := conversion.BeneficiaryType + ":" + itoa(conversion.BeneficiaryID)
		if prev, ok := chosen[key]; ok {
			logger.Warnw("conversion_correlation_ambiguous",
				"deposit_id", depositID,
				"beneficiary_type", conversion.BeneficiaryType,
				"beneficiary_id", conversion.BeneficiaryID,
				"kept_id", maxUint(prev.ID, conversion.ID),
				"dropped_id", minUint(prev.ID, conversion.ID),
			)
			if conversion.ID < prev.ID {
				continue
			}
		}
		chosen[key] = conversion
	}

	var updated []models.Conversion
	err = s.conversionRepo.Transaction(func(tx *gorm.DB) error {
		updated = updated[:0]
		for _, candidate := range chosen {
			conversion, err := s.applyStatusTx(tx, candidate.ID, target)
			if err != nil {
				return err
			}
			if conversion != nil {
				updated = append(updated, *conversion)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyStatusTx 事务内推进单条佣金事件
func (s *ConversionService) applyStatusTx(tx *gorm.DB, conversionID uint, target string) (*models.Conversion, error) {
	repo := s.conversionRepo.WithTx(tx)
	conversion, err := repo.GetByIDForUpdate(conversionID)
	if err != nil {
		return nil, err
	}
	if conversion == nil {
		return nil, ErrConversionNotFound
	}

	switch target {
	case constants.ConversionStatusCompleted:
		switch conversion.Status {
		case constants.ConversionStatusPending:
			conversion.Status = constants.ConversionStatusCompleted
			conversion.UpdatedAt = time.Now()
			if err := repo.Update(conversion); err != nil {
				return nil, err
			}
			if _, err := s.walletSvc.CreditTx(tx, conversion); err != nil {
				return nil, err
			}
		case constants.ConversionStatusCompleted:
			// 重复投递：补一次幂等入账即可
			if _, err := s.walletSvc.CreditTx(tx, conversion); err != nil {
				return nil, err
			}
		case constants.ConversionStatusCancelled:
			logger.Warnw("conversion_complete_after_cancel_skipped",
				"conversion_id", conversion.ID,
				"deposit_id", conversion.DepositID,
			)
		}
	case constants.ConversionStatusCancelled:
		switch conversion.Status {
		case constants.ConversionStatusPending:
			conversion.Status = constants.ConversionStatusCancelled
			conversion.UpdatedAt = time.Now()
			if err := repo.Update(conversion); err != nil {
				return nil, err
			}
			// 未入账的取消只回退待确认与累计字段
			if err := s.walletSvc.ApplyAggregateDeltasTx(tx, conversion.BeneficiaryType, conversion.BeneficiaryID,
				conversion.Commission.Decimal.Neg(), decimalZero, conversion.Commission.Decimal.Neg(), false); err != nil {
				return nil, err
			}
		case constants.ConversionStatusCompleted:
			conversion.Status = constants.ConversionStatusCancelled
			conversion.UpdatedAt = time.Now()
			if err := repo.Update(conversion); err != nil {
				return nil, err
			}
			if _, err := s.walletSvc.ReverseTx(tx, conversion); err != nil {
				return nil, err
			}
		case constants.ConversionStatusCancelled:
			// 已取消，no-op
		}
	}
	return conversion, nil
}

// GetConversion 按ID查询佣金事件
func (s *ConversionService) GetConversion(id uint) (*models.Conversion, error) {
	conversion, err := s.conversionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if conversion == nil {
		return nil, ErrConversionNotFound
	}
	return conversion, nil
}

// ListConversions 分页查询佣金事件
func (s *ConversionService) ListConversions(filter repository.ConversionListFilter) ([]models.Conversion, int64, error) {
	return s.conversionRepo.List(filter)
}
