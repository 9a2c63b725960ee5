package public

import (
	"errors"

	"github.com/refledger/internal/http/response"
	"github.com/refledger/internal/models"
	"github.com/refledger/internal/service"

	"github.com/gin-gonic/gin"
)

// ValidatePartnerCommissionRequest 合伙人佣金方案校验请求
type ValidatePartnerCommissionRequest struct {
	AffiliateID uint         `json:"affiliate_id" binding:"required"`
	Kind        string       `json:"kind" binding:"required"`
	Value       models.Money `json:"value"`
}

// GetPartnerLimits 查询推广人可下发的合伙人佣金上限
func (h *Handler) GetPartnerLimits(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	limits, err := h.AffiliateService.PartnerLimits(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		case errors.Is(err, service.ErrNoCommissionConfigured):
			respondError(c, response.CodeBadRequest, "no commission configured", nil)
		default:
			respondError(c, response.CodeInternal, "fetch partner limits failed", err)
		}
		return
	}
	response.Success(c, limits)
}

// ValidatePartnerCommission 预校验合伙人佣金方案是否超出上限
func (h *Handler) ValidatePartnerCommission(c *gin.Context) {
	var req ValidatePartnerCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	err := h.AffiliateService.ValidatePartnerProposal(req.AffiliateID, req.Kind, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		case errors.Is(err, service.ErrPartnerCommissionExceedsCap):
			response.Success(c, gin.H{"valid": false, "reason": "exceeds_cap"})
		case errors.Is(err, service.ErrInvalidAmount):
			response.Success(c, gin.H{"valid": false, "reason": "invalid_amount"})
		case errors.Is(err, service.ErrInvalidCommissionKind):
			respondError(c, response.CodeBadRequest, "invalid commission kind", nil)
		case errors.Is(err, service.ErrNoCommissionConfigured):
			respondError(c, response.CodeBadRequest, "no commission configured", nil)
		default:
			respondError(c, response.CodeInternal, "validate commission failed", err)
		}
		return
	}
	response.Success(c, gin.H{"valid": true})
}
