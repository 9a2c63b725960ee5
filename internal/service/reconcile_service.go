package service

import (
	"context"
	"sync"
	"time"

	"github.com/refledger/internal/cache"
	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/logger"
	"github.com/refledger/internal/models"
	"github.com/refledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const reconcileLockKey = "reconcile:ledger"

// ReconcileService 台账对账服务
// 佣金事件表是权威口径，钱包与汇总字段是可重建的投影；三个修复步骤均幂等
type ReconcileService struct {
	conversionRepo repository.ConversionRepository
	affiliateRepo  repository.AffiliateRepository
	partnerRepo    repository.PartnerRepository
	walletSvc      *WalletService
	epsilon        decimal.Decimal
	lockTTL        time.Duration

	mu        sync.Mutex
	driftSeen map[string]int
}

// ReconcileReport 单次对账结果
type ReconcileReport struct {
	MissingCredits      int       `json:"missing_credits"`
	DuplicatesCollapsed int       `json:"duplicates_collapsed"`
	AggregatesResynced  int       `json:"aggregates_resynced"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
}

// Changed 判断本次对账是否有任何修复动作
func (r *ReconcileReport) Changed() bool {
	return r.MissingCredits > 0 || r.DuplicatesCollapsed > 0 || r.AggregatesResynced > 0
}

// NewReconcileService 创建对账服务
func NewReconcileService(
	conversionRepo repository.ConversionRepository,
	affiliateRepo repository.AffiliateRepository,
	partnerRepo repository.PartnerRepository,
	walletSvc *WalletService,
	epsilon decimal.Decimal,
	lockTTL time.Duration,
) *ReconcileService {
	if epsilon.LessThanOrEqual(decimal.Zero) {
		epsilon = decimal.RequireFromString("0.01")
	}
	if lockTTL <= 0 {
		lockTTL = 4 * time.Minute
	}
	return &ReconcileService{
		conversionRepo: conversionRepo,
		affiliateRepo:  affiliateRepo,
		partnerRepo:    partnerRepo,
		walletSvc:      walletSvc,
		epsilon:        epsilon,
		lockTTL:        lockTTL,
		driftSeen:      map[string]int{},
	}
}

// Run 执行一轮对账，同一时刻只允许一个实例运行
func (s *ReconcileService) Run(ctx context.Context) (*ReconcileReport, error) {
	token := uuid.NewString()
	acquired, err := cache.AcquireLock(ctx, reconcileLockKey, token, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrReconcileAlreadyRunning
	}
	defer func() {
		if err := cache.ReleaseLock(context.Background(), reconcileLockKey, token); err != nil {
			logger.Warnw("reconcile_lock_release_failed", "error", err)
		}
	}()

	report := &ReconcileReport{StartedAt: time.Now()}

	if err := s.repairMissingCredits(ctx, report); err != nil {
		return nil, err
	}
	if err := s.collapseDuplicates(ctx, report); err != nil {
		return nil, err
	}
	if err := s.resyncAggregates(ctx, report); err != nil {
		return nil, err
	}

	report.FinishedAt = time.Now()
	logger.Infow("reconcile_finished",
		"missing_credits", report.MissingCredits,
		"duplicates_collapsed", report.DuplicatesCollapsed,
		"aggregates_resynced", report.AggregatesResynced,
		"elapsed_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	)
	return report, nil
}

// repairMissingCredits 已完成但缺少入账流水的事件补入账
func (s *ReconcileService) repairMissingCredits(ctx context.Context, report *ReconcileReport) error {
	conversions, err := s.conversionRepo.FindCompletedWithoutCredit(500)
	if err != nil {
		return err
	}
	for i := range conversions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conversion := conversions[i]
		if _, err := s.walletSvc.Credit(&conversion); err != nil {
			logger.Errorw("reconcile_missing_credit_failed",
				"conversion_id", conversion.ID,
				"error", err,
			)
			continue
		}
		report.MissingCredits++
		logger.Warnw("reconcile_missing_credit_repaired",
			"conversion_id", conversion.ID,
			"deposit_id", conversion.DepositID,
			"commission", conversion.Commission.String(),
		)
	}
	return nil
}

// collapseDuplicates 同受益人、同用户、同金额、同自然日的重复事件收敛为一条
// 带不同充值单号的组视为同日多笔真实充值，跳过不动
func (s *ReconcileService) collapseDuplicates(ctx context.Context, report *ReconcileReport) error {
	groups, err := s.conversionRepo.FindDuplicateGroups(200)
	if err != nil {
		return err
	}
	for _, key := range groups {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		members, err := s.conversionRepo.ListGroupMembers(key)
		if err != nil {
			return err
		}
		if len(members) < 2 {
			continue
		}

		if distinctDepositCount(members) > 1 {
			logger.Debugw("reconcile_duplicate_group_skipped",
				"beneficiary_type", key.BeneficiaryType,
				"beneficiary_id", key.BeneficiaryID,
				"user_id", key.UserID,
				"reason", "distinct_deposit_ids",
			)
			continue
		}

		kept := members[0]
		for _, dup := range members[1:] {
			if err := s.collapseOne(&dup); err != nil {
				logger.Errorw("reconcile_duplicate_collapse_failed",
					"conversion_id", dup.ID,
					"error", err,
				)
				continue
			}
			report.DuplicatesCollapsed++
			logger.Warnw("reconcile_duplicate_collapsed",
				"kept_id", kept.ID,
				"removed_id", dup.ID,
				"deposit_id", dup.DepositID,
			)
		}
	}
	return nil
}

// collapseOne 回收单条重复事件：先冲正或回退汇总，再软删除
func (s *ReconcileService) collapseOne(dup *models.Conversion) error {
	return s.conversionRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.conversionRepo.WithTx(tx)
		conversion, err := repo.GetByIDForUpdate(dup.ID)
		if err != nil {
			return err
		}
		if conversion == nil {
			return nil
		}

		switch conversion.Status {
		case constants.ConversionStatusCompleted:
			if _, err := s.walletSvc.ReverseTx(tx, conversion); err != nil {
				return err
			}
			// 已完成但从未入账的行仍占着待确认额度
			credited, err := s.walletSvc.walletRepo.WithTx(tx).GetTransactionByReference(commissionReference(conversion.ID))
			if err != nil {
				return err
			}
			if credited == nil {
				if err := s.walletSvc.ApplyAggregateDeltasTx(tx, conversion.BeneficiaryType, conversion.BeneficiaryID,
					conversion.Commission.Decimal.Neg(), decimalZero, conversion.Commission.Decimal.Neg(), false); err != nil {
					return err
				}
			}
		case constants.ConversionStatusPending:
			if err := s.walletSvc.ApplyAggregateDeltasTx(tx, conversion.BeneficiaryType, conversion.BeneficiaryID,
				conversion.Commission.Decimal.Neg(), decimalZero, conversion.Commission.Decimal.Neg(), false); err != nil {
				return err
			}
		}

		return repo.SoftDelete(conversion)
	})
}

// resyncAggregates 以事件表汇总为准回写受益人汇总字段
// 同一受益人反复漂移说明上游有修不动的 bug，升级为 error 日志
func (s *ReconcileService) resyncAggregates(ctx context.Context, report *ReconcileReport) error {
	sums, err := s.conversionRepo.SumByBeneficiary()
	if err != nil {
		return err
	}

	type expected struct {
		pending  decimal.Decimal
		approved decimal.Decimal
	}
	computed := map[string]*expected{}
	for _, row := range sums {
		key := row.BeneficiaryType + ":" + itoa(row.BeneficiaryID)
		entry, ok := computed[key]
		if !ok {
			entry = &expected{pending: decimal.Zero, approved: decimal.Zero}
			computed[key] = entry
		}
		switch row.Status {
		case constants.ConversionStatusPending:
			entry.pending = entry.pending.Add(row.Total.Decimal)
		case constants.ConversionStatusCompleted:
			entry.approved = entry.approved.Add(row.Total.Decimal)
		}
	}

	affiliates, _, err := s.affiliateRepo.List(repository.AffiliateListFilter{})
	if err != nil {
		return err
	}
	for i := range affiliates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		affiliate := affiliates[i]
		key := constants.WalletOwnerAffiliate + ":" + itoa(affiliate.ID)
		want := computed[key]
		if want == nil {
			want = &expected{pending: decimal.Zero, approved: decimal.Zero}
		}
		if err := s.resyncOwner(key, constants.WalletOwnerAffiliate, affiliate.ID,
			affiliate.PendingEarnings, affiliate.ApprovedEarnings, affiliate.TotalEarnings,
			want.pending, want.approved, report); err != nil {
			return err
		}
	}

	partners, _, err := s.partnerRepo.List(repository.PartnerListFilter{})
	if err != nil {
		return err
	}
	for i := range partners {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		partner := partners[i]
		key := constants.WalletOwnerPartner + ":" + itoa(partner.ID)
		want := computed[key]
		if want == nil {
			want = &expected{pending: decimal.Zero, approved: decimal.Zero}
		}
		if err := s.resyncOwner(key, constants.WalletOwnerPartner, partner.ID,
			partner.PendingEarnings, partner.ApprovedEarnings, partner.TotalEarnings,
			want.pending, want.approved, report); err != nil {
			return err
		}
	}
	return nil
}

// resyncOwner 对单个受益人比较并按需回写
func (s *ReconcileService) resyncOwner(key, ownerType string, ownerID uint,
	storedPending, storedApproved, storedTotal models.Money,
	wantPending, wantApproved decimal.Decimal, report *ReconcileReport) error {
	wantTotal := wantPending.Add(wantApproved)

	drift := maxDecimal(
		storedPending.Decimal.Sub(wantPending).Abs(),
		storedApproved.Decimal.Sub(wantApproved).Abs(),
		storedTotal.Decimal.Sub(wantTotal).Abs(),
	)
	if drift.LessThanOrEqual(s.epsilon) {
		s.mu.Lock()
		delete(s.driftSeen, key)
		s.mu.Unlock()
		return nil
	}

	err := s.conversionRepo.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"pending_earnings":  models.NewMoneyFromDecimal(wantPending),
			"approved_earnings": models.NewMoneyFromDecimal(wantApproved),
			"total_earnings":    models.NewMoneyFromDecimal(wantTotal),
			"updated_at":        time.Now(),
		}
		var model interface{}
		if ownerType == constants.WalletOwnerAffiliate {
			model = &models.Affiliate{}
		} else {
			model = &models.Partner{}
		}
		return tx.Model(model).Where("id = ?", ownerID).Updates(updates).Error
	})
	if err != nil {
		return err
	}

	report.AggregatesResynced++
	s.mu.Lock()
	s.driftSeen[key]++
	seen := s.driftSeen[key]
	s.mu.Unlock()

	fields := []interface{}{
		"owner_type", ownerType,
		"owner_id", ownerID,
		"drift", drift.StringFixed(2),
		"pending", models.NewMoneyFromDecimal(wantPending).String(),
		"approved", models.NewMoneyFromDecimal(wantApproved).String(),
		"total", models.NewMoneyFromDecimal(wantTotal).String(),
	}
	if seen >= 2 {
		logger.Errorw("aggregate_drift_recurring", append(fields, "occurrences", seen)...)
	} else {
		logger.Warnw("aggregate_drift_repaired", fields...)
	}
	return nil
}

func distinctDepositCount(members []models.Conversion) int {
	seen := map[string]struct{}{}
	for _, m := range members {
		if m.DepositID == "" {
			continue
		}
		seen[m.DepositID] = struct{}{}
	}
	return len(seen)
}

func maxDecimal(values ...decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	max := values[0]
	for _, v := range values[1:] {
		if v.GreaterThan(max) {
			max = v
		}
	}
	return max
}
