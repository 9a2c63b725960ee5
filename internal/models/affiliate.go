package models

import (
	"time"

	"gorm.io/gorm"
)

// Affiliate 推广人账户
type Affiliate struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                          // 主键
	Name              string         `gorm:"type:varchar(64);not null" json:"name"`                         // 名称
	Email             string         `gorm:"type:varchar(128);not null;uniqueIndex" json:"email"`           // 邮箱
	Tier              string         `gorm:"type:varchar(32);not null;index" json:"tier"`                   // 佣金等级
	CommissionMode    string         `gorm:"type:varchar(20);not null" json:"commission_mode"`              // 佣金模式（percentage/fixed）
	CustomRate        Money          `gorm:"type:decimal(10,2);not null;default:0" json:"custom_rate"`      // 自定义比例（百分比）
	CustomFixedAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"custom_fixed_amount"` // 自定义固定佣金
	CurrentLevelRate  Money          `gorm:"type:decimal(10,2);not null;default:0" json:"current_level_rate"`  // 兜底等级费率
	TotalEarnings     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_earnings"`   // 累计佣金
	PendingEarnings   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"pending_earnings"` // 待确认佣金
	ApprovedEarnings  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"approved_earnings"` // 已确认佣金
	PaidEarnings      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"paid_earnings"`    // 已支付佣金
	Status            string         `gorm:"type:varchar(20);not null;index" json:"status"`                 // 状态（active/disabled）
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}
