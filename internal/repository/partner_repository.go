package repository

import (
	"errors"
	"strings"

	"github.com/refledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PartnerRepository 合伙人数据访问接口
type PartnerRepository interface {
	GetByID(id uint) (*models.Partner, error)
	GetByIDForUpdate(id uint) (*models.Partner, error)
	GetByEmail(email string) (*models.Partner, error)
	Create(partner *models.Partner) error
	Update(partner *models.Partner) error
	List(filter PartnerListFilter) ([]models.Partner, int64, error)
	CreateCode(code *models.PartnerCode) error
	GetCodeByCode(code string) (*models.PartnerCode, error)
	ListCodes(partnerID uint) ([]models.PartnerCode, error)
	WithTx(tx *gorm.DB) PartnerRepository
}

// GormPartnerRepository GORM 合伙人仓储实现
type GormPartnerRepository struct {
	db *gorm.DB
}

// NewPartnerRepository 创建合伙人仓储
func NewPartnerRepository(db *gorm.DB) *GormPartnerRepository {
	return &GormPartnerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPartnerRepository) WithTx(tx *gorm.DB) PartnerRepository {
	if tx == nil {
		return r
	}
	return &GormPartnerRepository{db: tx}
}

// GetByID 按ID获取合伙人
func (r *GormPartnerRepository) GetByID(id uint) (*models.Partner, error) {
	if id == 0 {
		return nil, nil
	}
	var partner models.Partner
	if err := r.db.First(&partner, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// GetByIDForUpdate 按ID加锁获取合伙人
func (r *GormPartnerRepository) GetByIDForUpdate(id uint) (*models.Partner, error) {
	if id == 0 {
		return nil, nil
	}
	var partner models.Partner
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&partner, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// GetByEmail 按邮箱获取合伙人
func (r *GormPartnerRepository) GetByEmail(email string) (*models.Partner, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	var partner models.Partner
	if err := r.db.Where("email = ?", email).First(&partner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// Create 创建合伙人
func (r *GormPartnerRepository) Create(partner *models.Partner) error {
	return r.db.Create(partner).Error
}

// Update 更新合伙人
func (r *GormPartnerRepository) Update(partner *models.Partner) error {
	return r.db.Save(partner).Error
}

// List 分页查询合伙人
func (r *GormPartnerRepository) List(filter PartnerListFilter) ([]models.Partner, int64, error) {
	query := r.db.Model(&models.Partner{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(name LIKE ? OR email LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var partners []models.Partner
	if err := query.Order("id desc").Find(&partners).Error; err != nil {
		return nil, 0, err
	}
	return partners, total, nil
}

// CreateCode 创建合伙人推广码
func (r *GormPartnerRepository) CreateCode(code *models.PartnerCode) error {
	return r.db.Create(code).Error
}

// GetCodeByCode 按推广码查询
func (r *GormPartnerRepository) GetCodeByCode(code string) (*models.PartnerCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var record models.PartnerCode
	if err := r.db.Where("code = ?", code).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListCodes 查询合伙人的全部推广码
func (r *GormPartnerRepository) ListCodes(partnerID uint) ([]models.PartnerCode, error) {
	if partnerID == 0 {
		return []models.PartnerCode{}, nil
	}
	var codes []models.PartnerCode
	if err := r.db.Where("partner_id = ?", partnerID).Order("id asc").Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}
