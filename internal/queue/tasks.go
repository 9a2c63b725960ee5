package queue

import (
	"encoding/json"

	"github.com/refledger/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskDepositStatusApply 充值状态应用任务
	TaskDepositStatusApply = constants.TaskDepositStatusApply
	// TaskLedgerReconcile 台账对账任务
	TaskLedgerReconcile = constants.TaskLedgerReconcile
)

// DepositStatusApplyPayload 充值状态应用任务载荷
type DepositStatusApplyPayload struct {
	DepositID string `json:"deposit_id"`
	Status    string `json:"status"`
}

// LedgerReconcilePayload 对账任务载荷
type LedgerReconcilePayload struct {
	Reason string `json:"reason"`
}

// NewDepositStatusApplyTask 创建充值状态应用任务
func NewDepositStatusApplyTask(payload DepositStatusApplyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDepositStatusApply, body), nil
}

// NewLedgerReconcileTask 创建对账任务
func NewLedgerReconcileTask(payload LedgerReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerReconcile, body), nil
}
