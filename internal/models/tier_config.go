package models

import (
	"time"
)

// TierConfig 佣金等级配置
type TierConfig struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                          // 主键
	Tier           string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"tier"`             // 等级名
	PercentageRate Money     `gorm:"type:decimal(10,2);not null;default:0" json:"percentage_rate"`  // 比例费率（百分比）
	FixedAmount    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"fixed_amount"`     // 固定佣金
	MinEarnings    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"min_earnings"`     // 晋级所需累计已确认佣金
	SortOrder      int       `gorm:"not null;default:0;index" json:"sort_order"`                    // 等级排序（由低到高）
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt      time.Time `gorm:"index" json:"updated_at"`                                       // 更新时间
}

// TableName 指定表名
func (TierConfig) TableName() string {
	return "tier_configs"
}
