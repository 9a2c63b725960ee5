package worker

import (
	"context"
	"errors"
	"time"

	"github.com/refledger/internal/config"
	"github.com/refledger/internal/logger"
	"github.com/refledger/internal/queue"
	"github.com/refledger/internal/service"

	"github.com/hibiken/asynq"
)

const defaultReconcileInterval = 5 * time.Minute

// Service 异步队列服务
type Service struct {
	name              string
	server            *asynq.Server
	mux               *asynq.ServeMux
	consumer          *Consumer
	reconcileEnabled  bool
	reconcileInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	interval := time.Duration(cfg.Reconcile.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	return &Service{
		name:              "worker",
		server:            server,
		mux:               mux,
		consumer:          consumer,
		reconcileEnabled:  cfg.Reconcile.Enabled,
		reconcileInterval: interval,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.reconcileEnabled && s.consumer != nil && s.consumer.ReconcileService != nil {
		go s.runReconcileLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runReconcileLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.ReconcileService == nil {
		return
	}
	runOnce := func() {
		report, err := s.consumer.ReconcileService.Run(ctx)
		if err != nil {
			if errors.Is(err, service.ErrReconcileAlreadyRunning) {
				logger.Debugw("worker_reconcile_loop_skip_already_running")
				return
			}
			logger.Warnw("worker_reconcile_loop_failed", "error", err)
			return
		}
		if report.Changed() {
			logger.Infow("worker_reconcile_loop_repaired",
				"missing_credits", report.MissingCredits,
				"duplicates_collapsed", report.DuplicatesCollapsed,
				"aggregates_resynced", report.AggregatesResynced,
			)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.reconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
