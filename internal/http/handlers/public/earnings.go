package public

import (
	"errors"
	"strconv"

	"github.com/refledger/internal/constants"
	handlershared "github.com/refledger/internal/http/handlers/shared"
	"github.com/refledger/internal/http/response"
	"github.com/refledger/internal/repository"
	"github.com/refledger/internal/service"

	"github.com/gin-gonic/gin"
)

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return uint(id), true
}

// GetAffiliateEarnings 查询推广人收益汇总
func (h *Handler) GetAffiliateEarnings(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.WalletService.GetEarnings(constants.WalletOwnerAffiliate, id)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "fetch earnings failed", err)
		return
	}
	response.Success(c, summary)
}

// GetPartnerEarnings 查询合伙人收益汇总
func (h *Handler) GetPartnerEarnings(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.WalletService.GetEarnings(constants.WalletOwnerPartner, id)
	if err != nil {
		if errors.Is(err, service.ErrPartnerNotFound) {
			respondError(c, response.CodeNotFound, "partner not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "fetch earnings failed", err)
		return
	}
	response.Success(c, summary)
}

// ListAffiliateConversions 查询推广人的佣金事件列表
func (h *Handler) ListAffiliateConversions(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	conversions, total, err := h.ConversionService.ListConversions(repository.ConversionListFilter{
		Page:            page,
		PageSize:        pageSize,
		BeneficiaryType: constants.WalletOwnerAffiliate,
		BeneficiaryID:   id,
		Status:          c.Query("status"),
		DepositID:       c.Query("deposit_id"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch conversions failed", err)
		return
	}
	response.SuccessWithPage(c, conversions, handlershared.BuildPagination(page, pageSize, total))
}

// ListWalletTransactions 查询受益人钱包流水
func (h *Handler) ListWalletTransactions(c *gin.Context) {
	ownerType := c.Param("owner_type")
	if ownerType != constants.WalletOwnerAffiliate && ownerType != constants.WalletOwnerPartner {
		respondError(c, response.CodeBadRequest, "invalid owner_type", nil)
		return
	}
	ownerID, ok := parseUintParam(c, "owner_id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	wallet, err := h.WalletService.GetWalletByOwner(ownerType, ownerID)
	if err != nil {
		if errors.Is(err, service.ErrWalletNotFound) {
			// 尚无入账则没有流水
			response.SuccessWithPage(c, []struct{}{}, handlershared.BuildPagination(page, pageSize, 0))
			return
		}
		respondError(c, response.CodeInternal, "fetch wallet failed", err)
		return
	}

	txns, total, err := h.WalletService.ListTransactions(repository.WalletTransactionListFilter{
		Page:      page,
		PageSize:  pageSize,
		WalletID:  wallet.ID,
		Type:      c.Query("type"),
		Direction: c.Query("direction"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch transactions failed", err)
		return
	}
	response.SuccessWithPage(c, txns, handlershared.BuildPagination(page, pageSize, total))
}
