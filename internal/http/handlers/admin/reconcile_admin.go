package admin

import (
	"errors"

	"github.com/refledger/internal/http/response"
	"github.com/refledger/internal/queue"
	"github.com/refledger/internal/service"

	"github.com/gin-gonic/gin"
)

// RunReconcile 手工触发一轮对账
// 队列可用时入队执行，否则同步跑完并返回报告
func (h *Handler) RunReconcile(c *gin.Context) {
	if h.QueueClient != nil && h.QueueClient.Enabled() {
		payload := queue.LedgerReconcilePayload{Reason: "admin_manual"}
		if err := h.QueueClient.EnqueueLedgerReconcile(payload); err != nil {
			requestLog(c).Warnw("reconcile_enqueue_failed", "error", err)
		} else {
			response.Success(c, gin.H{"queued": true})
			return
		}
	}

	if h.ReconcileService == nil {
		respondError(c, response.CodeInternal, "reconcile service unavailable", nil)
		return
	}
	report, err := h.ReconcileService.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrReconcileAlreadyRunning) {
			respondError(c, response.CodeConflict, "reconcile already running", nil)
			return
		}
		respondError(c, response.CodeInternal, "reconcile failed", err)
		return
	}
	response.Success(c, report)
}
