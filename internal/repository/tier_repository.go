package repository

import (
	"errors"
	"strings"

	"github.com/refledger/internal/models"

	"gorm.io/gorm"
)

// TierRepository 等级费率表数据访问接口
type TierRepository interface {
	GetByTier(tier string) (*models.TierConfig, error)
	List() ([]models.TierConfig, error)
	Save(cfg *models.TierConfig) error
	WithTx(tx *gorm.DB) TierRepository
}

// GormTierRepository GORM 等级费率仓储实现
type GormTierRepository struct {
	db *gorm.DB
}

// NewTierRepository 创建等级费率仓储
func NewTierRepository(db *gorm.DB) *GormTierRepository {
	return &GormTierRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTierRepository) WithTx(tx *gorm.DB) TierRepository {
	if tx == nil {
		return r
	}
	return &GormTierRepository{db: tx}
}

// GetByTier 按等级名获取费率配置
func (r *GormTierRepository) GetByTier(tier string) (*models.TierConfig, error) {
	tier = strings.TrimSpace(tier)
	if tier == "" {
		return nil, nil
	}
	var cfg models.TierConfig
	if err := r.db.Where("tier = ?", tier).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// List 按排序获取全部等级费率
func (r *GormTierRepository) List() ([]models.TierConfig, error) {
	var configs []models.TierConfig
	if err := r.db.Order("sort_order asc").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// Save 创建或更新等级费率
func (r *GormTierRepository) Save(cfg *models.TierConfig) error {
	if cfg == nil {
		return nil
	}
	return r.db.Save(cfg).Error
}
