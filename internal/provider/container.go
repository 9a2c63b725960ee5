package provider

import (
	"time"

	"github.com/refledger/internal/cache"
	"github.com/refledger/internal/config"
	"github.com/refledger/internal/logger"
	"github.com/refledger/internal/models"
	"github.com/refledger/internal/queue"
	"github.com/refledger/internal/repository"
	"github.com/refledger/internal/service"

	"github.com/shopspring/decimal"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	TierRepo       repository.TierRepository
	AffiliateRepo  repository.AffiliateRepository
	PartnerRepo    repository.PartnerRepository
	ConversionRepo repository.ConversionRepository
	WalletRepo     repository.WalletRepository

	// Services
	TierService       *service.TierService
	AffiliateService  *service.AffiliateService
	WalletService     *service.WalletService
	ConversionService *service.ConversionService
	ReconcileService  *service.ReconcileService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.TierRepo = repository.NewTierRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.PartnerRepo = repository.NewPartnerRepository(db)
	c.ConversionRepo = repository.NewConversionRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
}

func (c *Container) initServices() {
	minDeposit := parseConfigMoney(c.Config.Commission.MinDeposit, "15", "commission.min_deposit")
	epsilon := parseConfigDecimal(c.Config.Reconcile.Epsilon, "0.01", "reconcile.epsilon")
	lockTTL := time.Duration(c.Config.Reconcile.LockTTLSeconds) * time.Second

	c.TierService = service.NewTierService(c.TierRepo)
	c.WalletService = service.NewWalletService(c.WalletRepo, c.AffiliateRepo, c.PartnerRepo, c.TierService)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.PartnerRepo, c.TierService, minDeposit, c.Config.Commission.DefaultTier)
	c.ConversionService = service.NewConversionService(c.ConversionRepo, c.AffiliateRepo, c.PartnerRepo, c.TierService, c.WalletService, minDeposit)
	c.ReconcileService = service.NewReconcileService(c.ConversionRepo, c.AffiliateRepo, c.PartnerRepo, c.WalletService, epsilon, lockTTL)
}

func parseConfigMoney(raw, fallback, key string) models.Money {
	return models.NewMoneyFromDecimal(parseConfigDecimal(raw, fallback, key))
}

func parseConfigDecimal(raw, fallback, key string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil || d.LessThanOrEqual(decimal.Zero) {
		logger.Warnw("config_decimal_invalid", "key", key, "value", raw, "fallback", fallback)
		return decimal.RequireFromString(fallback)
	}
	return d
}
