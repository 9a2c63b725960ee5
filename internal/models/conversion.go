package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversion 佣金事件记录（一笔充值对应一个受益人的一行）
// 佣金金额与费率在创建时冻结，此后只允许 status 变化
type Conversion struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                                                      // 主键
	AffiliateID     uint           `gorm:"not null;index" json:"affiliate_id"`                                                        // 归因推广人ID
	PartnerID       *uint          `gorm:"index" json:"partner_id,omitempty"`                                                         // 归因合伙人ID
	BeneficiaryType string         `gorm:"type:varchar(20);not null;index:idx_conversion_deposit_beneficiary,unique" json:"beneficiary_type"` // 受益人类型（affiliate/partner）
	BeneficiaryID   uint           `gorm:"not null;index:idx_conversion_deposit_beneficiary,unique" json:"beneficiary_id"`            // 受益人ID
	UserID          uint           `gorm:"not null;index" json:"user_id"`                                                             // 被推荐用户ID
	DepositID       string         `gorm:"type:varchar(64);not null;index:idx_conversion_deposit_beneficiary,unique" json:"deposit_id"` // 上游充值单ID
	ConversionType  string         `gorm:"type:varchar(20);not null;default:'deposit'" json:"conversion_type"`                        // 事件类型
	ConversionValue Money          `gorm:"type:decimal(20,2);not null;default:0" json:"conversion_value"`                             // 触发充值金额
	Commission      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission"`                                   // 佣金金额（创建时冻结）
	CommissionRate  Money          `gorm:"type:decimal(10,2);not null;default:0" json:"commission_rate"`                              // 费率快照
	CommissionKind  string         `gorm:"type:varchar(20);not null" json:"commission_kind"`                                          // 费率类型（percentage/fixed）
	Status          string         `gorm:"type:varchar(20);not null;index" json:"status"`                                             // 状态（pending/completed/cancelled）
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                                                   // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                                                   // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                                                            // 软删除时间（去重回收用）
}

// TableName 指定表名
func (Conversion) TableName() string {
	return "conversions"
}
