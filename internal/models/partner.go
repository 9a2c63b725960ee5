package models

import (
	"time"

	"gorm.io/gorm"
)

// Partner 合伙人（隶属某个推广人的下级分销账户）
type Partner struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                             // 主键
	AffiliateID       uint           `gorm:"not null;index" json:"affiliate_id"`                               // 所属推广人ID
	Name              string         `gorm:"type:varchar(64);not null" json:"name"`                            // 名称
	Email             string         `gorm:"type:varchar(128);not null;uniqueIndex" json:"email"`              // 邮箱
	CommissionMode    string         `gorm:"type:varchar(20);not null" json:"commission_mode"`                 // 佣金模式（percentage/fixed）
	CustomRate        Money          `gorm:"type:decimal(10,2);not null;default:0" json:"custom_rate"`         // 自定义比例（百分比）
	CustomFixedAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"custom_fixed_amount"` // 自定义固定佣金
	TotalEarnings     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_earnings"`      // 累计佣金
	PendingEarnings   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"pending_earnings"`    // 待确认佣金
	ApprovedEarnings  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"approved_earnings"`   // 已确认佣金
	PaidEarnings      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"paid_earnings"`       // 已支付佣金
	Status            string         `gorm:"type:varchar(20);not null;index" json:"status"`                    // 状态（active/disabled）
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                          // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                   // 软删除时间

	Affiliate Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 所属推广人
}

// TableName 指定表名
func (Partner) TableName() string {
	return "partners"
}

// PartnerCode 合伙人推广码
type PartnerCode struct {
	ID        uint           `gorm:"primarykey" json:"id"`                              // 主键
	PartnerID uint           `gorm:"not null;index" json:"partner_id"`                  // 合伙人ID
	Code      string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"` // 推广短码
	Status    string         `gorm:"type:varchar(20);not null;index" json:"status"`     // 状态
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                           // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                    // 软删除时间

	Partner Partner `gorm:"foreignKey:PartnerID" json:"partner,omitempty"` // 合伙人
}

// TableName 指定表名
func (PartnerCode) TableName() string {
	return "partner_codes"
}
