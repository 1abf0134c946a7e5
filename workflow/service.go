package workflow

import (
	"context"
	"strings"

	"bitbucket.org/broman/realty_backend/config"
	"bitbucket.org/broman/realty_backend/models"
	"bitbucket.org/broman/realty_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// Service runs every financial mutation in one database transaction together with its
// cashier posting. Dependencies are injected; nothing here is package-global.
type Service struct {
	db       *gorm.DB
	logger   *logrus.Logger
	settings *models.SettingsStore
	store    LedgerStore
	ledger   *CashierLedger
	engine   *RuleEngine
	flat     *FlatRateCalculator
	locker   PostingLocker
	tracer   trace.Tracer
}

type ServiceOption func(*Service)

func WithLocker(locker PostingLocker) ServiceOption {
	return func(s *Service) { s.locker = locker }
}

func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *Service) { s.tracer = tracer }
}

func WithLedgerStore(store LedgerStore) ServiceOption {
	return func(s *Service) { s.store = store }
}

func NewService(db *gorm.DB, logger *logrus.Logger, settings *models.SettingsStore, opts ...ServiceOption) *Service {
	s := &Service{
		db:       db,
		logger:   logger,
		settings: settings,
		store:    models.NewGormLedgerStore(),
		locker:   NoopLocker(),
		tracer:   DefaultTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = NewCashierLedger(s.store, logger, s.tracer)
	s.engine = NewRuleEngine(s.tracer)
	s.flat = NewFlatRateCalculator(settings)
	return s
}

func (s *Service) DB() *gorm.DB                    { return s.db }
func (s *Service) Logger() *logrus.Logger          { return s.logger }
func (s *Service) Settings() *models.SettingsStore { return s.settings }
func (s *Service) Ledger() *CashierLedger          { return s.ledger }
func (s *Service) Engine() *RuleEngine             { return s.engine }

// Outcome reports what a mutation did to the cashier.
type Outcome struct {
	Balance decimal.Decimal                 `json:"cashier_balance"`
	Gaps    []*utils.ReconciliationGapError `json:"gaps,omitempty"`
}

func (o *Outcome) absorb(res *LedgerResult) {
	if res == nil {
		return
	}
	o.Balance = res.Balance
	if res.Gap != nil {
		o.Gaps = append(o.Gaps, res.Gap)
	}
}

// runLedgerTx takes the posting lock and runs fn in one transaction.
func (s *Service) runLedgerTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	release, err := s.locker.Acquire(ctx, LedgerLockKey)
	if err != nil {
		return err
	}
	defer release()
	return s.db.WithContext(ctx).Transaction(fn)
}

// calculator returns the strategy named by CALCULATION_STRATEGY, read through tx.
func (s *Service) calculator(ctx context.Context, tx *gorm.DB) Calculator {
	name := s.settings.WithTx(tx).GetString(ctx, models.SettingCalculationStrategy, string(models.CalculationStrategyRules))
	if models.CalculationStrategy(strings.ToLower(strings.TrimSpace(name))) == models.CalculationStrategyFlat {
		return s.flat
	}
	return s.engine
}

func actorId(ctx context.Context) int {
	id, _ := utils.GetUserIdFromContext(ctx)
	return id
}

func (s *Service) logError(funcName string, context string, data any, err error) {
	config.LogError(s.logger, "workflow", funcName, context, data, err)
}
