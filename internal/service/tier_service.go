package service

import (
	"strings"
	"sync"
	"time"

	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/logger"
	"github.com/refledger/internal/models"
	"github.com/refledger/internal/repository"

	"gorm.io/gorm"
)

const tierCacheTTL = 60 * time.Second

// TierService 等级费率服务，读多写少，进程内带 TTL 缓存
type TierService struct {
	tierRepo repository.TierRepository

	mu       sync.RWMutex
	cached   []models.TierConfig
	cachedAt time.Time
}

// NewTierService 创建等级费率服务
func NewTierService(tierRepo repository.TierRepository) *TierService {
	return &TierService{tierRepo: tierRepo}
}

// List 获取全部等级费率（按排序），优先走缓存
func (s *TierService) List() ([]models.TierConfig, error) {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.cachedAt) < tierCacheTTL {
		configs := s.cached
		s.mu.RUnlock()
		return configs, nil
	}
	s.mu.RUnlock()

	configs, err := s.tierRepo.List()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cached = configs
	s.cachedAt = time.Now()
	s.mu.Unlock()
	return configs, nil
}

// GetByTier 按等级名获取费率配置，找不到返回 nil
func (s *TierService) GetByTier(tier string) (*models.TierConfig, error) {
	tier = strings.TrimSpace(tier)
	if tier == "" {
		return nil, nil
	}
	configs, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range configs {
		if configs[i].Tier == tier {
			return &configs[i], nil
		}
	}
	return nil, nil
}

// Save 更新某个等级的费率并失效缓存
func (s *TierService) Save(cfg *models.TierConfig) error {
	if cfg == nil || strings.TrimSpace(cfg.Tier) == "" {
		return ErrTierNotFound
	}
	existing, err := s.tierRepo.GetByTier(cfg.Tier)
	if err != nil {
		return err
	}
	if existing != nil {
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
	}
	if err := s.tierRepo.Save(cfg); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// Invalidate 失效进程内缓存
func (s *TierService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.cachedAt = time.Time{}
	s.mu.Unlock()
}

// PromoteTx 按已确认佣金尝试晋级推广人，事务内调用
// 只升不降，special 等级不参与自动晋级
func (s *TierService) PromoteTx(tx *gorm.DB, affiliate *models.Affiliate) error {
	if affiliate == nil {
		return nil
	}
	configs, err := s.List()
	if err != nil {
		return err
	}

	currentOrder := 0
	for _, cfg := range configs {
		if cfg.Tier == affiliate.Tier {
			currentOrder = cfg.SortOrder
			break
		}
	}

	target := affiliate.Tier
	targetOrder := currentOrder
	for _, cfg := range configs {
		if cfg.Tier == constants.TierSpecial {
			continue
		}
		if cfg.SortOrder <= targetOrder {
			continue
		}
		if affiliate.ApprovedEarnings.Decimal.GreaterThanOrEqual(cfg.MinEarnings.Decimal) {
			target = cfg.Tier
			targetOrder = cfg.SortOrder
		}
	}

	if target == affiliate.Tier {
		return nil
	}

	from := affiliate.Tier
	affiliate.Tier = target
	if err := tx.Model(&models.Affiliate{}).Where("id = ?", affiliate.ID).
		Update("tier", target).Error; err != nil {
		return err
	}
	logger.Infow("affiliate_tier_promoted",
		"affiliate_id", affiliate.ID,
		"from", from,
		"to", target,
		"approved_earnings", affiliate.ApprovedEarnings.String(),
	)
	return nil
}
