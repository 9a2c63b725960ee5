package constants

// 等级常量
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
	TierDiamond  = "diamond"
	TierSpecial  = "special"
)

// 佣金模式常量
const (
	CommissionModePercentage = "percentage"
	CommissionModeFixed      = "fixed"
)

// 推广账户状态常量
const (
	AffiliateStatusActive   = "active"
	AffiliateStatusDisabled = "disabled"
)

// 合伙人推广码状态常量
const (
	PartnerCodeStatusActive   = "active"
	PartnerCodeStatusDisabled = "disabled"
)

// 转化记录状态常量
const (
	ConversionStatusPending   = "pending"
	ConversionStatusCompleted = "completed"
	ConversionStatusCancelled = "cancelled"
)

// 转化类型常量
const (
	ConversionTypeDeposit = "deposit"
)

// 外部充值状态常量（上游支付层推送）
const (
	DepositStatusCompleted = "completed"
	DepositStatusCancelled = "cancelled"
	DepositStatusExpired   = "expired"
)

// 钱包归属类型常量
const (
	WalletOwnerAffiliate = "affiliate"
	WalletOwnerPartner   = "partner"
)

// 钱包流水类型常量
const (
	WalletTxnTypeCommission = "commission"
	WalletTxnTypeReversal   = "reversal"
	WalletTxnTypeWithdrawal = "withdrawal"
	WalletTxnTypeAdjustment = "adjustment"
)

// 钱包流水方向常量
const (
	WalletTxnDirectionIn  = "in"
	WalletTxnDirectionOut = "out"
)

// 钱包流水状态常量
const (
	WalletTxnStatusCompleted = "completed"
)

// 流水参考对象类型常量
const (
	TxnReferenceTypeConversion = "conversion"
)

// 异步任务类型常量
const (
	TaskDepositStatusApply = "deposit:status_apply"
	TaskLedgerReconcile    = "ledger:reconcile"
)

// 队列名称常量
const (
	QueueDefault = "default"
)
