package router

import (
	"fmt"
	"strings"

	"github.com/refledger/internal/cache"
	"github.com/refledger/internal/config"
	adminhandlers "github.com/refledger/internal/http/handlers/admin"
	publichandlers "github.com/refledger/internal/http/handlers/public"
	"github.com/refledger/internal/logger"
	"github.com/refledger/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "rl"
	}
	var eventRule RateLimitRule
	if cfg.Security.EventRateLimit.Enabled {
		eventRule = RateLimitRule{
			Prefix:        fmt.Sprintf("%s:rate:events", redisPrefix),
			WindowSeconds: cfg.Security.EventRateLimit.WindowSeconds,
			MaxRequests:   cfg.Security.EventRateLimit.MaxRequests,
		}
	}
	redisClient := cache.Client()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 上游事件回调
		events := apiV1.Group("/events")
		events.Use(RateLimitMiddleware(redisClient, eventRule, KeyByIP))
		{
			events.POST("/deposit-created", publicHandler.DepositCreated)
			events.POST("/deposit-status", publicHandler.DepositStatus)
		}

		// 推广侧查询接口
		apiV1.GET("/affiliates/:id/earnings", publicHandler.GetAffiliateEarnings)
		apiV1.GET("/affiliates/:id/conversions", publicHandler.ListAffiliateConversions)
		apiV1.GET("/affiliates/:id/partner-limits", publicHandler.GetPartnerLimits)
		apiV1.GET("/partners/:id/earnings", publicHandler.GetPartnerEarnings)
		apiV1.GET("/wallets/:owner_type/:owner_id/transactions", publicHandler.ListWalletTransactions)
		apiV1.POST("/partners/validate-commission", publicHandler.ValidatePartnerCommission)

		// 后台接口
		admin := apiV1.Group("/admin")
		{
			admin.POST("/affiliates", adminHandler.CreateAffiliate)
			admin.GET("/affiliates", adminHandler.ListAffiliates)
			admin.GET("/affiliates/:id", adminHandler.GetAffiliate)
			admin.POST("/partners", adminHandler.CreatePartner)
			admin.GET("/partners", adminHandler.ListPartners)
			admin.GET("/tiers", adminHandler.ListTiers)
			admin.PUT("/tiers/:tier", adminHandler.UpdateTier)
			admin.POST("/reconcile/run", adminHandler.RunReconcile)
		}
	}

	return r
}
