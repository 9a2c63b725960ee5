package public

import (
	"errors"

	"github.com/refledger/internal/http/response"
	"github.com/refledger/internal/models"
	"github.com/refledger/internal/queue"
	"github.com/refledger/internal/service"

	"github.com/gin-gonic/gin"
)

// DepositCreatedRequest 充值创建事件请求
type DepositCreatedRequest struct {
	DepositID   string       `json:"deposit_id" binding:"required"`
	UserID      uint         `json:"user_id" binding:"required"`
	Amount      models.Money `json:"amount"`
	AffiliateID uint         `json:"affiliate_id" binding:"required"`
	PartnerID   *uint        `json:"partner_id"`
}

// DepositStatusRequest 充值状态变更事件请求
type DepositStatusRequest struct {
	DepositID string `json:"deposit_id" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// DepositCreated 接收充值创建事件并同步落佣金
// 费率在接收时刻冻结，因此该事件不走异步队列
func (h *Handler) DepositCreated(c *gin.Context) {
	var req DepositCreatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	if h.ConversionService == nil {
		respondError(c, response.CodeInternal, "conversion service unavailable", nil)
		return
	}

	conversions, err := h.ConversionService.RecordDeposit(service.RecordDepositInput{
		DepositID:   req.DepositID,
		UserID:      req.UserID,
		Amount:      req.Amount,
		AffiliateID: req.AffiliateID,
		PartnerID:   req.PartnerID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDepositIDRequired),
			errors.Is(err, service.ErrInvalidAmount):
			respondError(c, response.CodeBadRequest, "invalid deposit event", nil)
		case errors.Is(err, service.ErrAffiliateNotFound):
			respondError(c, response.CodeNotFound, "affiliate not found", nil)
		case errors.Is(err, service.ErrPartnerNotFound):
			respondError(c, response.CodeNotFound, "partner not found", nil)
		case errors.Is(err, service.ErrAffiliateDisabled),
			errors.Is(err, service.ErrPartnerDisabled):
			respondError(c, response.CodeBadRequest, "beneficiary disabled", nil)
		case errors.Is(err, service.ErrNoCommissionConfigured):
			respondError(c, response.CodeBadRequest, "no commission configured", nil)
		case errors.Is(err, service.ErrPartnerCommissionExceedsCap):
			respondError(c, response.CodeBadRequest, "partner commission exceeds cap", nil)
		default:
			respondError(c, response.CodeInternal, "record deposit failed", err)
		}
		return
	}
	response.Success(c, gin.H{"conversions": conversions})
}

// DepositStatus 接收充值状态变更事件
// 队列可用时入队异步处理，否则同步套用；两条路径命中同一幂等服务调用
func (h *Handler) DepositStatus(c *gin.Context) {
	var req DepositStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	if h.QueueClient != nil && h.QueueClient.Enabled() {
		payload := queue.DepositStatusApplyPayload{DepositID: req.DepositID, Status: req.Status}
		if err := h.QueueClient.EnqueueDepositStatusApply(payload); err != nil {
			requestLog(c).Warnw("deposit_status_enqueue_failed", "deposit_id", req.DepositID, "error", err)
		} else {
			response.Success(c, gin.H{"queued": true})
			return
		}
	}

	if h.ConversionService == nil {
		respondError(c, response.CodeInternal, "conversion service unavailable", nil)
		return
	}
	conversions, err := h.ConversionService.ApplyDepositStatus(req.DepositID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDepositStatusInvalid):
			respondError(c, response.CodeBadRequest, "deposit status invalid", nil)
		case errors.Is(err, service.ErrConversionNotFound):
			respondError(c, response.CodeNotFound, "conversion not found", nil)
		default:
			respondError(c, response.CodeInternal, "apply deposit status failed", err)
		}
		return
	}
	response.Success(c, gin.H{"queued": false, "conversions": conversions})
}
