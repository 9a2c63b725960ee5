package repository

import "time"

// AffiliateListFilter 查询推广人列表的过滤条件
type AffiliateListFilter struct {
	Page     int
	PageSize int
	Tier     string
	Status   string
	Search   string
}

// PartnerListFilter 查询合伙人列表的过滤条件
type PartnerListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	Status      string
	Search      string
}

// ConversionListFilter 查询佣金事件列表的过滤条件
type ConversionListFilter struct {
	Page            int
	PageSize        int
	AffiliateID     uint
	PartnerID       uint
	BeneficiaryType string
	BeneficiaryID   uint
	UserID          uint
	DepositID       string
	Status          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}

// WalletTransactionListFilter 查询钱包流水列表的过滤条件
type WalletTransactionListFilter struct {
	Page        int
	PageSize    int
	WalletID    uint
	Type        string
	Direction   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
