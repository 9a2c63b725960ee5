package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/refledger/internal/logger"
	"github.com/refledger/internal/provider"
	"github.com/refledger/internal/queue"
	"github.com/refledger/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskDepositStatusApply, c.handleDepositStatusApply)
	mux.HandleFunc(queue.TaskLedgerReconcile, c.handleLedgerReconcile)
}

func (c *Consumer) handleDepositStatusApply(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_deposit_status_apply_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.DepositStatusApplyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_deposit_status_apply_unmarshal_failed", "error", err)
		return err
	}
	if payload.DepositID == "" || payload.Status == "" {
		logger.Debugw("worker_deposit_status_apply_skip_invalid_payload", "deposit_id", payload.DepositID, "status", payload.Status)
		return nil
	}
	if c.ConversionService == nil {
		logger.Warnw("worker_deposit_status_apply_skip_service_nil", "deposit_id", payload.DepositID)
		return nil
	}
	if _, err := c.ConversionService.ApplyDepositStatus(payload.DepositID, payload.Status); err != nil {
		switch {
		case errors.Is(err, service.ErrConversionNotFound):
			logger.Debugw("worker_deposit_status_apply_skip_no_conversion", "deposit_id", payload.DepositID, "status", payload.Status)
			return nil
		case errors.Is(err, service.ErrDepositStatusInvalid):
			logger.Debugw("worker_deposit_status_apply_skip_invalid_status", "deposit_id", payload.DepositID, "status", payload.Status)
			return nil
		default:
			logger.Warnw("worker_deposit_status_apply_failed", "deposit_id", payload.DepositID, "status", payload.Status, "error", err)
			return err
		}
	}
	logger.Infow("worker_deposit_status_apply_done", "deposit_id", payload.DepositID, "status", payload.Status)
	return nil
}

func (c *Consumer) handleLedgerReconcile(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_ledger_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LedgerReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_ledger_reconcile_unmarshal_failed", "error", err)
		return err
	}
	if c.ReconcileService == nil {
		logger.Warnw("worker_ledger_reconcile_skip_service_nil", "reason", payload.Reason)
		return nil
	}
	report, err := c.ReconcileService.Run(ctx)
	if err != nil {
		if errors.Is(err, service.ErrReconcileAlreadyRunning) {
			logger.Debugw("worker_ledger_reconcile_skip_already_running", "reason", payload.Reason)
			return nil
		}
		logger.Warnw("worker_ledger_reconcile_failed", "reason", payload.Reason, "error", err)
		return err
	}
	logger.Infow("worker_ledger_reconcile_done",
		"reason", payload.Reason,
		"missing_credits", report.MissingCredits,
		"duplicates_collapsed", report.DuplicatesCollapsed,
		"aggregates_resynced", report.AggregatesResynced,
	)
	return nil
}
