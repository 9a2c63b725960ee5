package service

import "errors"

// 业务错误哨兵，handler 层用 errors.Is 匹配后映射为响应码
var (
	ErrAffiliateNotFound           = errors.New("affiliate not found")
	ErrAffiliateDisabled           = errors.New("affiliate disabled")
	ErrPartnerNotFound             = errors.New("partner not found")
	ErrPartnerDisabled             = errors.New("partner disabled")
	ErrNoCommissionConfigured      = errors.New("no commission configured")
	ErrPartnerCommissionExceedsCap = errors.New("partner commission exceeds affiliate cap")
	ErrInvalidAmount               = errors.New("invalid amount")
	ErrInvalidCommissionKind       = errors.New("invalid commission kind")
	ErrConversionNotFound          = errors.New("conversion not found")
	ErrDepositIDRequired           = errors.New("deposit id required")
	ErrDepositStatusInvalid        = errors.New("deposit status invalid")
	ErrWalletNotFound              = errors.New("wallet not found")
	ErrTierNotFound                = errors.New("tier not found")
	ErrEmailExists                 = errors.New("email already exists")
	ErrInvalidInput                = errors.New("invalid input")
	ErrReconcileAlreadyRunning     = errors.New("reconcile already running")
)
