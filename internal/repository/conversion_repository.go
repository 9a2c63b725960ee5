package repository

import (
	"errors"
	"strings"

	"github.com/refledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BeneficiarySum 按受益人与状态汇总的佣金合计
type BeneficiarySum struct {
	BeneficiaryType string
	BeneficiaryID   uint
	Status          string
	Total           models.Money
}

// DuplicateGroupKey 疑似重复佣金事件的分组键（自然键 + 日期）
type DuplicateGroupKey struct {
	BeneficiaryType string
	BeneficiaryID   uint
	UserID          uint
	ConversionValue models.Money
	Day             string
}

// ConversionRepository 佣金事件数据访问接口
type ConversionRepository interface {
	Create(conversion *models.Conversion) error
	Update(conversion *models.Conversion) error
	GetByID(id uint) (*models.Conversion, error)
	GetByIDForUpdate(id uint) (*models.Conversion, error)
	GetByDepositAndBeneficiary(depositID, beneficiaryType string, beneficiaryID uint) (*models.Conversion, error)
	ListByDepositID(depositID string) ([]models.Conversion, error)
	List(filter ConversionListFilter) ([]models.Conversion, int64, error)
	FindCompletedWithoutCredit(limit int) ([]models.Conversion, error)
	FindDuplicateGroups(limit int) ([]DuplicateGroupKey, error)
	ListGroupMembers(key DuplicateGroupKey) ([]models.Conversion, error)
	SumByBeneficiary() ([]BeneficiarySum, error)
	SoftDelete(conversion *models.Conversion) error
	WithTx(tx *gorm.DB) ConversionRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormConversionRepository GORM 佣金事件仓储实现
type GormConversionRepository struct {
	db *gorm.DB
}

// NewConversionRepository 创建佣金事件仓储
func NewConversionRepository(db *gorm.DB) *GormConversionRepository {
	return &GormConversionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormConversionRepository) WithTx(tx *gorm.DB) ConversionRepository {
	if tx == nil {
		return r
	}
	return &GormConversionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormConversionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建佣金事件
func (r *GormConversionRepository) Create(conversion *models.Conversion) error {
	return r.db.Create(conversion).Error
}

// Update 更新佣金事件
func (r *GormConversionRepository) Update(conversion *models.Conversion) error {
	return r.db.Save(conversion).Error
}

// GetByID 按ID获取佣金事件
func (r *GormConversionRepository) GetByID(id uint) (*models.Conversion, error) {
	if id == 0 {
		return nil, nil
	}
	var conversion models.Conversion
	if err := r.db.First(&conversion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// GetByIDForUpdate 按ID加锁获取佣金事件
func (r *GormConversionRepository) GetByIDForUpdate(id uint) (*models.Conversion, error) {
	if id == 0 {
		return nil, nil
	}
	var conversion models.Conversion
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&conversion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// GetByDepositAndBeneficiary 按充值单与受益人获取佣金事件
// 命中唯一索引，是入账链路的幂等查询
func (r *GormConversionRepository) GetByDepositAndBeneficiary(depositID, beneficiaryType string, beneficiaryID uint) (*models.Conversion, error) {
	depositID = strings.TrimSpace(depositID)
	if depositID == "" || beneficiaryID == 0 {
		return nil, nil
	}
	var conversion models.Conversion
	if err := r.db.Where("deposit_id = ? AND beneficiary_type = ? AND beneficiary_id = ?",
		depositID, beneficiaryType, beneficiaryID).
		Order("id desc").
		First(&conversion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// ListByDepositID 查询一笔充值关联的全部佣金事件
func (r *GormConversionRepository) ListByDepositID(depositID string) ([]models.Conversion, error) {
	depositID = strings.TrimSpace(depositID)
	if depositID == "" {
		return []models.Conversion{}, nil
	}
	var conversions []models.Conversion
	if err := r.db.Where("deposit_id = ?", depositID).
		Order("id asc").
		Find(&conversions).Error; err != nil {
		return nil, err
	}
	return conversions, nil
}

// List 分页查询佣金事件
func (r *GormConversionRepository) List(filter ConversionListFilter) ([]models.Conversion, int64, error) {
	query := r.db.Model(&models.Conversion{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.PartnerID != 0 {
		query = query.Where("partner_id = ?", filter.PartnerID)
	}
	if filter.BeneficiaryType != "" {
		query = query.Where("beneficiary_type = ?", filter.BeneficiaryType)
	}
	if filter.BeneficiaryID != 0 {
		query = query.Where("beneficiary_id = ?", filter.BeneficiaryID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.DepositID != "" {
		query = query.Where("deposit_id = ?", filter.DepositID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var conversions []models.Conversion
	if err := query.Order("id desc").Find(&conversions).Error; err != nil {
		return nil, 0, err
	}
	return conversions, total, nil
}

// FindCompletedWithoutCredit 查询状态已完成但没有对应入账流水的佣金事件
// reference 拼接使用 ||，sqlite 与 postgres 通用
func (r *GormConversionRepository) FindCompletedWithoutCredit(limit int) ([]models.Conversion, error) {
	if limit <= 0 {
		limit = 200
	}
	var conversions []models.Conversion
	err := r.db.Model(&models.Conversion{}).
		Where("status = ?", "completed").
		Where("NOT EXISTS (SELECT 1 FROM wallet_transactions wt WHERE wt.reference = 'conversion:' || conversions.id || ':commission')").
		Order("conversions.id asc").
		Limit(limit).
		Find(&conversions).Error
	if err != nil {
		return nil, err
	}
	return conversions, nil
}

// FindDuplicateGroups 查询同受益人、同用户、同金额、同自然日出现多条的事件分组
func (r *GormConversionRepository) FindDuplicateGroups(limit int) ([]DuplicateGroupKey, error) {
	if limit <= 0 {
		limit = 100
	}
	var keys []DuplicateGroupKey
	err := r.db.Model(&models.Conversion{}).
		Select("beneficiary_type, beneficiary_id, user_id, conversion_value, date(created_at) AS day").
		Group("beneficiary_type, beneficiary_id, user_id, conversion_value, date(created_at)").
		Having("COUNT(*) > 1").
		Limit(limit).
		Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// ListGroupMembers 按分组键取出组内全部事件，按创建先后排序
func (r *GormConversionRepository) ListGroupMembers(key DuplicateGroupKey) ([]models.Conversion, error) {
	var conversions []models.Conversion
	err := r.db.Model(&models.Conversion{}).
		Where("beneficiary_type = ? AND beneficiary_id = ? AND user_id = ? AND conversion_value = ? AND date(created_at) = ?",
			key.BeneficiaryType, key.BeneficiaryID, key.UserID, key.ConversionValue, key.Day).
		Order("created_at asc, id asc").
		Find(&conversions).Error
	if err != nil {
		return nil, err
	}
	return conversions, nil
}

// SumByBeneficiary 按受益人与状态汇总佣金，对账时作为权威口径
func (r *GormConversionRepository) SumByBeneficiary() ([]BeneficiarySum, error) {
	var sums []BeneficiarySum
	err := r.db.Model(&models.Conversion{}).
		Select("beneficiary_type, beneficiary_id, status, COALESCE(SUM(commission), 0) AS total").
		Group("beneficiary_type, beneficiary_id, status").
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}
	return sums, nil
}

// SoftDelete 软删除佣金事件（去重回收）
func (r *GormConversionRepository) SoftDelete(conversion *models.Conversion) error {
	if conversion == nil || conversion.ID == 0 {
		return nil
	}
	return r.db.Delete(conversion).Error
}
