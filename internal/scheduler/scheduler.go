package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"FinUp/internal/collector"
	"FinUp/internal/model"
	"FinUp/internal/notifier"
	"FinUp/internal/portfolio"
	"FinUp/internal/recorder"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Credentials identify an account evaluated on schedule.
type Credentials struct {
	CPF      string
	Password string
}

// Evaluator runs one evaluation pass.
type Evaluator interface {
	Evaluate(ctx context.Context, sess *model.Session) (*portfolio.Report, error)
}

// Authenticator opens sessions against the banking API.
type Authenticator interface {
	Login(ctx context.Context, cpf, password string) (*model.Session, error)
}

// IndicatorSource returns the latest economic indicators.
type IndicatorSource interface {
	Indicators(ctx context.Context, series []collector.Series) ([]model.EconomicIndicator, error)
}

// Sender delivers formatted messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron       *cron.Cron
	Evaluator  Evaluator
	Auth       Authenticator // nil trusts the configured CPF without a login
	Indicators IndicatorSource
	Series     []collector.Series
	Notifier   Sender
	Recorder   recorder.Recorder
	Accounts   []Credentials
	Ctx        context.Context

	mu         sync.Mutex
	sessions   map[string]*model.Session
	accountIDs map[string]int64
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, ev Evaluator, auth Authenticator, inds IndicatorSource, tn Sender, rec recorder.Recorder, accounts []Credentials) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Evaluator:  ev,
		Auth:       auth,
		Indicators: inds,
		Series:     collector.DefaultSeries,
		Notifier:   tn,
		Recorder:   rec,
		Accounts:   accounts,
		Ctx:        ctx,
		sessions:   make(map[string]*model.Session),
		accountIDs: make(map[string]int64),
	}
}

// RegisterAll registers the evaluation and indicator tasks.
func (s *Scheduler) RegisterAll(evaluateCron, indicatorsCron string) error {
	if _, err := s.Cron.AddFunc(evaluateCron, s.evaluateTask); err != nil {
		return fmt.Errorf("register evaluate task: %w", err)
	}
	if indicatorsCron != "" {
		if _, err := s.Cron.AddFunc(indicatorsCron, s.indicatorsTask); err != nil {
			return fmt.Errorf("register indicators task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	zap.L().Info("scheduler started", zap.Int("accounts", len(s.Accounts)))
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	zap.L().Info("scheduler stopped")
}

// RunEvaluateNow executes the evaluation task immediately (for RUN_ON_START).
func (s *Scheduler) RunEvaluateNow() {
	s.evaluateTask()
}

func (s *Scheduler) evaluateTask() {
	zap.L().Info("running evaluation task")
	for _, acct := range s.Accounts {
		report, err := s.evaluate(s.Ctx, acct)
		if err != nil {
			zap.L().Error("scheduled evaluation failed", zap.String("cpf", maskCPF(acct.CPF)), zap.Error(err))
			s.trySend(fmt.Sprintf("❌ Falha ao avaliar a carteira %s: %v", maskCPF(acct.CPF), err))
			continue
		}
		s.trySend(notifier.FormatReportHTML(report))
		s.record(report, recorder.TriggerSchedule)
	}
}

func (s *Scheduler) indicatorsTask() {
	zap.L().Info("running indicators task")
	s.trySend(s.indicatorsMessage(s.Ctx))
}

func (s *Scheduler) indicatorsMessage(ctx context.Context) string {
	if s.Indicators == nil {
		return "Indicadores não configurados."
	}
	now := time.Now()
	inds, err := s.Indicators.Indicators(ctx, s.Series)
	if err != nil {
		zap.L().Error("indicators fetch failed", zap.Error(err))
		return fmt.Sprintf("❌ Falha ao obter indicadores: %v", err)
	}
	if err := s.Recorder.RecordIndicators(now, inds); err != nil {
		zap.L().Error("record indicators", zap.Error(err))
	}
	return notifier.FormatIndicatorsHTML(inds, now)
}

// session returns a live session for acct, logging in again once the cached one expires.
func (s *Scheduler) session(ctx context.Context, acct Credentials) (*model.Session, error) {
	if s.Auth == nil {
		return &model.Session{CPF: acct.CPF}, nil
	}
	s.mu.Lock()
	sess, ok := s.sessions[acct.CPF]
	s.mu.Unlock()
	if ok && !sess.Expired(time.Now().Add(time.Minute)) {
		return sess, nil
	}

	sess, err := s.Auth.Login(ctx, acct.CPF, acct.Password)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions[acct.CPF] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *Scheduler) evaluate(ctx context.Context, acct Credentials) (*portfolio.Report, error) {
	sess, err := s.session(ctx, acct)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	report, err := s.Evaluator.Evaluate(ctx, sess)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// next run logs in again
		delete(s.sessions, acct.CPF)
		return nil, err
	}
	if report.Account != nil {
		s.accountIDs[acct.CPF] = report.Account.ID
	}
	return report, nil
}

// HandleCommand processes a bot command for the first configured account and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/carteira", "/portfolio":
		report, err := s.commandReport(ctx)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatReportHTML(report)
	case "/rebalancear", "/rebalance":
		report, err := s.commandReport(ctx)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatPlanHTML(report)
	case "/indicadores", "/indicators":
		return s.indicatorsMessage(ctx)
	case "/historico", "/history":
		return s.history(ctx)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) commandReport(ctx context.Context) (*portfolio.Report, error) {
	if len(s.Accounts) == 0 {
		return nil, fmt.Errorf("nenhuma conta configurada")
	}
	report, err := s.evaluate(ctx, s.Accounts[0])
	if err != nil {
		zap.L().Error("command evaluation failed", zap.Error(err))
		return nil, fmt.Errorf("falha ao avaliar a carteira: %w", err)
	}
	s.record(report, recorder.TriggerCommand)
	return report, nil
}

func (s *Scheduler) history(ctx context.Context) string {
	h, ok := s.Recorder.(recorder.HistoryReader)
	if !ok || len(s.Accounts) == 0 {
		return "Histórico não configurado."
	}
	cpf := s.Accounts[0].CPF
	s.mu.Lock()
	id, known := s.accountIDs[cpf]
	s.mu.Unlock()
	if !known {
		report, err := s.commandReport(ctx)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		if report.Account != nil {
			id = report.Account.ID
		}
	}
	events, err := h.Recent(ctx, id, 10)
	if errors.Is(err, recorder.ErrNoHistory) {
		return "Histórico não configurado."
	}
	if err != nil {
		zap.L().Error("read history", zap.Error(err))
		return fmt.Sprintf("❌ %v", err)
	}
	return notifier.FormatHistoryHTML(events)
}

func (s *Scheduler) record(report *portfolio.Report, trigger recorder.Trigger) {
	if err := s.Recorder.RecordEvaluation(recorder.NewEvaluationEvent(report, trigger)); err != nil {
		zap.L().Error("record evaluation", zap.Error(err))
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		zap.L().Error("send notification", zap.Error(err))
	}
}

// maskCPF keeps only the last two digits of a CPF for logs and messages.
func maskCPF(cpf string) string {
	if len(cpf) <= 2 {
		return "***"
	}
	return strings.Repeat("*", len(cpf)-2) + cpf[len(cpf)-2:]
}
