package admin

import (
	"errors"
	"strconv"

	handlershared "github.com/refledger/internal/http/handlers/shared"
	"github.com/refledger/internal/http/response"
	"github.com/refledger/internal/models"
	"github.com/refledger/internal/repository"
	"github.com/refledger/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateAffiliateRequest 创建推广人请求
type CreateAffiliateRequest struct {
	Name              string       `json:"name" binding:"required"`
	Email             string       `json:"email" binding:"required"`
	Tier              string       `json:"tier"`
	CommissionMode    string       `json:"commission_mode" binding:"required"`
	CustomRate        models.Money `json:"custom_rate"`
	CustomFixedAmount models.Money `json:"custom_fixed_amount"`
	CurrentLevelRate  models.Money `json:"current_level_rate"`
}

// CreatePartnerRequest 创建合伙人请求
type CreatePartnerRequest struct {
	AffiliateID       uint         `json:"affiliate_id" binding:"required"`
	Name              string       `json:"name" binding:"required"`
	Email             string       `json:"email" binding:"required"`
	CommissionMode    string       `json:"commission_mode" binding:"required"`
	CustomRate        models.Money `json:"custom_rate"`
	CustomFixedAmount models.Money `json:"custom_fixed_amount"`
}

func parseIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid id", nil)
		return 0, false
	}
	return uint(id), true
}

// CreateAffiliate 创建推广人
func (h *Handler) CreateAffiliate(c *gin.Context) {
	var req CreateAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	affiliate, err := h.AffiliateService.CreateAffiliate(service.CreateAffiliateInput{
		Name:              req.Name,
		Email:             req.Email,
		Tier:              req.Tier,
		CommissionMode:    req.CommissionMode,
		CustomRate:        req.CustomRate,
		CustomFixedAmount: req.CustomFixedAmount,
		CurrentLevelRate:  req.CurrentLevelRate,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput),
			errors.Is(err, service.ErrInvalidCommissionKind),
			errors.Is(err, service.ErrNoCommissionConfigured):
			respondError(c, response.CodeBadRequest, "invalid affiliate payload", nil)
		case errors.Is(err, service.ErrTierNotFound):
			respondError(c, response.CodeBadRequest, "tier not found", nil)
		case errors.Is(err, service.ErrEmailExists):
			respondError(c, response.CodeConflict, "email already exists", nil)
		default:
			respondError(c, response.CodeInternal, "create affiliate failed", err)
		}
		return
	}
	response.Success(c, affiliate)
}

// GetAffiliate 查询推广人详情
func (h *Handler) GetAffiliate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	affiliate, err := h.AffiliateService.GetAffiliate(id)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "fetch affiliate failed", err)
		return
	}
	response.Success(c, affiliate)
}

// ListAffiliates 分页查询推广人
func (h *Handler) ListAffiliates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	affiliates, total, err := h.AffiliateService.ListAffiliates(repository.AffiliateListFilter{
		Page:     page,
		PageSize: pageSize,
		Tier:     c.Query("tier"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch affiliates failed", err)
		return
	}
	response.SuccessWithPage(c, affiliates, handlershared.BuildPagination(page, pageSize, total))
}

// CreatePartner 创建合伙人
func (h *Handler) CreatePartner(c *gin.Context) {
	var req CreatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	partner, err := h.AffiliateService.CreatePartner(service.CreatePartnerInput{
		AffiliateID:       req.AffiliateID,
		Name:              req.Name,
		Email:             req.Email,
		CommissionMode:    req.CommissionMode,
		CustomRate:        req.CustomRate,
		CustomFixedAmount: req.CustomFixedAmount,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput),
			errors.Is(err, service.ErrInvalidCommissionKind),
			errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrNoCommissionConfigured):
			respondError(c, response.CodeBadRequest, "invalid partner payload", nil)
		case errors.Is(err, service.ErrAffiliateNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		case errors.Is(err, service.ErrAffiliateDisabled):
			respondError(c, response.CodeBadRequest, "affiliate disabled", nil)
		case errors.Is(err, service.ErrPartnerCommissionExceedsCap):
			respondError(c, response.CodeBadRequest, "partner commission exceeds cap", nil)
		case errors.Is(err, service.ErrEmailExists):
			respondError(c, response.CodeConflict, "email already exists", nil)
		default:
			respondError(c, response.CodeInternal, "create partner failed", err)
		}
		return
	}
	response.Success(c, partner)
}

// ListPartners 分页查询合伙人
func (h *Handler) ListPartners(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	var affiliateID uint
	if raw := c.Query("affiliate_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "invalid affiliate_id", nil)
			return
		}
		affiliateID = uint(parsed)
	}

	partners, total, err := h.AffiliateService.ListPartners(repository.PartnerListFilter{
		Page:        page,
		PageSize:    pageSize,
		AffiliateID: affiliateID,
		Status:      c.Query("status"),
		Search:      c.Query("search"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch partners failed", err)
		return
	}
	response.SuccessWithPage(c, partners, handlershared.BuildPagination(page, pageSize, total))
}
