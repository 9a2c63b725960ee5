package service

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/models"
	"github.com/refledger/internal/repository"
)

const partnerCodeLength = 8
const partnerCodeMaxRetries = 5

// AffiliateService 推广人与合伙人档案服务
type AffiliateService struct {
	affiliateRepo repository.AffiliateRepository
	partnerRepo   repository.PartnerRepository
	tierSvc       *TierService
	minDeposit    models.Money
	defaultTier   string
}

// CreateAffiliateInput 创建推广人输入
type CreateAffiliateInput struct {
	Name              string
	Email             string
	Tier              string
	CommissionMode    string
	CustomRate        models.Money
	CustomFixedAmount models.Money
	CurrentLevelRate  models.Money
}

// CreatePartnerInput 创建合伙人输入
type CreatePartnerInput struct {
	AffiliateID       uint
	Name              string
	Email             string
	CommissionMode    string
	CustomRate        models.Money
	CustomFixedAmount models.Money
}

// NewAffiliateService 创建推广档案服务
func NewAffiliateService(
	affiliateRepo repository.AffiliateRepository,
	partnerRepo repository.PartnerRepository,
	tierSvc *TierService,
	minDeposit models.Money,
	defaultTier string,
) *AffiliateService {
	if strings.TrimSpace(defaultTier) == "" {
		defaultTier = constants.TierBronze
	}
	return &AffiliateService{
		affiliateRepo: affiliateRepo,
		partnerRepo:   partnerRepo,
		tierSvc:       tierSvc,
		minDeposit:    minDeposit,
		defaultTier:   defaultTier,
	}
}

// CreateAffiliate 创建推广人
func (s *AffiliateService) CreateAffiliate(input CreateAffiliateInput) (*models.Affiliate, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidInput
	}
	if input.CommissionMode != constants.CommissionModePercentage && input.CommissionMode != constants.CommissionModeFixed {
		return nil, ErrInvalidCommissionKind
	}
	existing, err := s.affiliateRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	tier := strings.TrimSpace(input.Tier)
	if tier == "" {
		tier = s.defaultTier
	}
	cfg, err := s.tierSvc.GetByTier(tier)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrTierNotFound
	}

	affiliate := &models.Affiliate{
		Name:              strings.TrimSpace(input.Name),
		Email:             email,
		Tier:              tier,
		CommissionMode:    input.CommissionMode,
		CustomRate:        input.CustomRate,
		CustomFixedAmount: input.CustomFixedAmount,
		CurrentLevelRate:  input.CurrentLevelRate,
		Status:            constants.AffiliateStatusActive,
	}

	// 建档即校验能解析出生效佣金，避免落库后第一笔充值才报错
	if _, err := ResolveAffiliateCommission(affiliate, cfg); err != nil {
		return nil, err
	}

	if err := s.affiliateRepo.Create(affiliate); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return affiliate, nil
}

// GetAffiliate 按ID查询推广人
func (s *AffiliateService) GetAffiliate(id uint) (*models.Affiliate, error) {
	affiliate, err := s.affiliateRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrAffiliateNotFound
	}
	return affiliate, nil
}

// ListAffiliates 分页查询推广人
func (s *AffiliateService) ListAffiliates(filter repository.AffiliateListFilter) ([]models.Affiliate, int64, error) {
	return s.affiliateRepo.List(filter)
}

// CreatePartner 创建合伙人并分配一个推广码
// 合伙人的佣金方案在创建时即校验不超过上游推广人的上限
func (s *AffiliateService) CreatePartner(input CreatePartnerInput) (*models.Partner, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidInput
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

	existing, err := s.partnerRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	partner := &models.Partner{
		AffiliateID:       affiliate.ID,
		Name:              strings.TrimSpace(input.Name),
		Email:             email,
		CommissionMode:    input.CommissionMode,
		CustomRate:        input.CustomRate,
		CustomFixedAmount: input.CustomFixedAmount,
		Status:            constants.AffiliateStatusActive,
	}

	partnerSpec, err := ResolvePartnerCommission(partner)
	if err != nil {
		return nil, err
	}
	tierCfg, err := s.tierSvc.GetByTier(affiliate.Tier)
	if err != nil {
		return nil, err
	}
	affiliateSpec, err := ResolveAffiliateCommission(affiliate, tierCfg)
	if err != nil {
		return nil, err
	}
	if err := ValidatePartnerCommission(affiliateSpec, partnerSpec.Kind, partnerSpec.Value, s.minDeposit); err != nil {
		return nil, err
	}

	if err := s.partnerRepo.Create(partner); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	if _, err := s.IssuePartnerCode(partner.ID); err != nil {
		return nil, err
	}
	return partner, nil
}

// GetPartner 按ID查询合伙人
func (s *AffiliateService) GetPartner(id uint) (*models.Partner, error) {
	partner, err := s.partnerRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	return partner, nil
}

// ListPartners 分页查询合伙人
func (s *AffiliateService) ListPartners(filter repository.PartnerListFilter) ([]models.Partner, int64, error) {
	return s.partnerRepo.List(filter)
}

// IssuePartnerCode 为合伙人生成一个新的推广码，撞码时重试
func (s *AffiliateService) IssuePartnerCode(partnerID uint) (*models.PartnerCode, error) {
	partner, err := s.partnerRepo.GetByID(partnerID)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}

	var lastErr error
	for i := 0; i < partnerCodeMaxRetries; i++ {
		code, err := generatePartnerCode()
		if err != nil {
			return nil, err
		}
		record := &models.PartnerCode{
			PartnerID: partner.ID,
			Code:      code,
			Status:    constants.PartnerCodeStatusActive,
		}
		if err := s.partnerRepo.CreateCode(record); err != nil {
			if isUniqueViolation(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return record, nil
	}
	return nil, lastErr
}

// PartnerLimits 查询合伙人可配置的佣金上限
func (s *AffiliateService) PartnerLimits(affiliateID uint) (*PartnerLimits, error) {
	affiliate, err := s.affiliateRepo.GetByID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrAffiliateNotFound
	}
	tierCfg, err := s.tierSvc.GetByTier(affiliate.Tier)
	if err != nil {
		return nil, err
	}
	spec, err := ResolveAffiliateCommission(affiliate, tierCfg)
	if err != nil {
		return nil, err
	}
	limits, err := PartnerLimitsFor(spec, s.minDeposit)
	if err != nil {
		return nil, err
	}
	return &limits, nil
}

// ValidatePartnerProposal 校验一个合伙人佣金提案
func (s *AffiliateService) ValidatePartnerProposal(affiliateID uint, partnerKind string, partnerValue models.Money) error {
	affiliate, err := s.affiliateRepo.GetByID(affiliateID)
	if err != nil {
		return err
	}
	if affiliate == nil {
		return ErrAffiliateNotFound
	}
	tierCfg, err := s.tierSvc.GetByTier(affiliate.Tier)
	if err != nil {
		return err
	}
	spec, err := ResolveAffiliateCommission(affiliate, tierCfg)
	if err != nil {
		return err
	}
	return ValidatePartnerCommission(spec, partnerKind, partnerValue, s.minDeposit)
}

func generatePartnerCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(partnerCodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < partnerCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
