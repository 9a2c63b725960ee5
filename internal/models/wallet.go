package models

import (
	"time"

	"gorm.io/gorm"
)

// Wallet 钱包账户（推广人或合伙人各一个，首次入账时懒创建）
type Wallet struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                                      // 主键
	OwnerType         string         `gorm:"type:varchar(20);not null;index:idx_wallet_owner,unique" json:"owner_type"` // 持有人类型（affiliate/partner）
	OwnerID           uint           `gorm:"not null;index:idx_wallet_owner,unique" json:"owner_id"`                    // 持有人ID
	Balance           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`                      // 当前余额
	TotalEarned       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_earned"`                 // 累计入账
	TotalWithdrawn    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_withdrawn"`              // 累计提现
	LastTransactionAt *time.Time     `gorm:"index" json:"last_transaction_at,omitempty"`                                // 最近流水时间
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                                   // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                                   // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                            // 软删除时间
}

// TableName 指定表名
func (Wallet) TableName() string {
	return "wallets"
}

// WalletTransaction 钱包流水（只追加，不修改）
// reference 全局唯一，是整个入账链路的幂等键
type WalletTransaction struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                   // 主键
	WalletID      uint       `gorm:"not null;index" json:"wallet_id"`                        // 钱包ID
	Type          string     `gorm:"type:varchar(20);not null;index" json:"type"`            // 流水类型（commission/reversal/withdrawal/adjustment）
	Direction     string     `gorm:"type:varchar(10);not null" json:"direction"`             // 方向（in/out）
	Amount        Money      `gorm:"type:decimal(20,2);not null" json:"amount"`              // 金额（冲正为负数）
	BalanceBefore Money      `gorm:"type:decimal(20,2);not null" json:"balance_before"`      // 变动前余额
	BalanceAfter  Money      `gorm:"type:decimal(20,2);not null" json:"balance_after"`       // 变动后余额
	Reference     string     `gorm:"type:varchar(128);not null;uniqueIndex" json:"reference"` // 幂等引用键
	ReferenceType string     `gorm:"type:varchar(20);not null;index" json:"reference_type"`  // 引用类型（conversion）
	ReferenceID   uint       `gorm:"not null;index" json:"reference_id"`                     // 引用记录ID
	Status        string     `gorm:"type:varchar(20);not null;index" json:"status"`          // 状态
	ProcessedAt   *time.Time `gorm:"index" json:"processed_at,omitempty"`                    // 入账时间
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`                                // 创建时间
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
