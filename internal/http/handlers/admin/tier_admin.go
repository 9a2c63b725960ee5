package admin

import (
	"strings"

	"github.com/refledger/internal/http/response"
	"github.com/refledger/internal/models"

	"github.com/gin-gonic/gin"
)

// UpdateTierRequest 等级配置更新请求
type UpdateTierRequest struct {
	PercentageRate models.Money `json:"percentage_rate"`
	FixedAmount    models.Money `json:"fixed_amount"`
	MinEarnings    models.Money `json:"min_earnings"`
	SortOrder      int          `json:"sort_order"`
}

// ListTiers 查询等级配置
func (h *Handler) ListTiers(c *gin.Context) {
	tiers, err := h.TierService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "fetch tiers failed", err)
		return
	}
	response.Success(c, tiers)
}

// UpdateTier 更新等级配置
// 只影响后续事件的费率解析，已落账事件的费率快照不变
func (h *Handler) UpdateTier(c *gin.Context) {
	tier := strings.TrimSpace(c.Param("tier"))
	if tier == "" {
		respondError(c, response.CodeBadRequest, "invalid tier", nil)
		return
	}
	var req UpdateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	cfg, err := h.TierService.GetByTier(tier)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch tier failed", err)
		return
	}
	if cfg == nil {
		respondError(c, response.CodeNotFound, "tier not found", nil)
		return
	}

	cfg.PercentageRate = req.PercentageRate
	cfg.FixedAmount = req.FixedAmount
	cfg.MinEarnings = req.MinEarnings
	if req.SortOrder > 0 {
		cfg.SortOrder = req.SortOrder
	}
	if err := h.TierService.Save(cfg); err != nil {
		respondError(c, response.CodeInternal, "save tier failed", err)
		return
	}
	requestLog(c).Infow("tier_config_updated", "tier", tier)
	response.Success(c, cfg)
}
