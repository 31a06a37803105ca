package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"RiskSentinel/internal/holdings"
	"RiskSentinel/internal/lock"
	"RiskSentinel/internal/notifier"
	"RiskSentinel/internal/pipeline"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ScanRunner runs one scan.
type ScanRunner interface {
	Run(ctx context.Context, req pipeline.ScanRequest) (pipeline.ScanReport, error)
}

// RiskRunner runs one monitoring cycle and owns the holdings.
type RiskRunner interface {
	RunCycle(ctx context.Context) (pipeline.RiskReport, error)
	Holdings() holdings.Store
}

// Scheduler manages the cron jobs and chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Scanner  ScanRunner
	Monitor  RiskRunner
	Notifier notifier.Notifier
	Ctx      context.Context
	logger   *zap.Logger
}

// NewScheduler creates a new Scheduler. Cron expressions carry a seconds field.
func NewScheduler(ctx context.Context, scanner ScanRunner, monitor RiskRunner, n notifier.Notifier, logger *zap.Logger) *Scheduler {
	if n == nil {
		n = notifier.Nop{}
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Scanner:  scanner,
		Monitor:  monitor,
		Notifier: n,
		Ctx:      ctx,
		logger:   logger.With(zap.String("component", "scheduler")),
	}
}

// RegisterAll registers the scan and monitor jobs. An empty expression
// disables that job.
func (s *Scheduler) RegisterAll(scanCron, riskCron string) error {
	if scanCron != "" {
		if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
			return fmt.Errorf("register scan task: %w", err)
		}
	}
	if riskCron != "" {
		if _, err := s.Cron.AddFunc(riskCron, s.riskTask); err != nil {
			return fmt.Errorf("register risk task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunScanNow executes the scan task immediately (RUN_ON_START).
func (s *Scheduler) RunScanNow() { s.scanTask() }

// RunRiskNow executes the monitor task immediately (RUN_ON_START).
func (s *Scheduler) RunRiskNow() { s.riskTask() }

func (s *Scheduler) scanTask() {
	s.logger.Info("running scan task")
	report, err := s.Scanner.Run(s.Ctx, pipeline.ScanRequest{})
	if err != nil {
		s.logger.Error("scan failed", zap.Error(err))
		s.trySend(notifier.TitleScan, notifier.FormatFailure(time.Now(), err))
		return
	}
	s.trySend(notifier.TitleScan, notifier.FormatScanReport(report))
}

func (s *Scheduler) riskTask() {
	s.logger.Info("running risk task")
	report, err := s.Monitor.RunCycle(s.Ctx)
	if errors.Is(err, lock.ErrLocked) {
		s.logger.Info("risk cycle skipped, another instance holds the lock")
		return
	}
	if err != nil {
		s.logger.Error("risk cycle failed", zap.Error(err))
		s.trySend(notifier.TitleFailed, notifier.FormatFailure(time.Now(), err))
		return
	}
	s.trySend(notifier.TitleRisk, notifier.FormatRiskReport(report))
}

// HandleCommand processes a chat command and returns the reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	text := strings.TrimSpace(command)
	head, payload, _ := strings.Cut(text, "\n")
	fields := strings.Fields(strings.ToLower(head))
	if len(fields) == 0 {
		return ""
	}

	switch fields[0] {
	case "/help", "/start":
		return notifier.HelpText
	case "/scan":
		return s.handleScan(ctx, fields[1:])
	case "/risk", "/advice":
		return s.handleRisk(ctx)
	case "/holdings":
		sub := ""
		if len(fields) > 1 {
			sub = fields[1]
		}
		return s.handleHoldings(ctx, sub, fields, payload)
	default:
		return "指令未识别，发送 `/help` 查看用法。"
	}
}

func (s *Scheduler) handleScan(ctx context.Context, args []string) string {
	var req pipeline.ScanRequest
	for _, a := range args {
		if n, err := strconv.Atoi(a); err == nil && n > 0 {
			req.TopN = n
			continue
		}
		req.Style = a
	}
	report, err := s.Scanner.Run(ctx, req)
	if err != nil {
		return fmt.Sprintf("❌ 扫描失败：%v", err)
	}
	return notifier.FormatScanReport(report)
}

func (s *Scheduler) handleRisk(ctx context.Context) string {
	report, err := s.Monitor.RunCycle(ctx)
	if errors.Is(err, lock.ErrLocked) {
		return "⏳ 已有风控任务在运行，请稍后再试。"
	}
	if err != nil {
		return notifier.FormatFailure(time.Now(), err)
	}
	return notifier.FormatRiskReport(report)
}

func (s *Scheduler) handleHoldings(ctx context.Context, sub string, fields []string, payload string) string {
	store := s.Monitor.Holdings()
	switch sub {
	case "list":
		items, err := store.Load(ctx)
		if err != nil {
			return fmt.Sprintf("❌ 读取持仓失败：%v", err)
		}
		return notifier.FormatHoldings(items)
	case "clear":
		if len(fields) < 3 || fields[2] != "confirm" {
			return "⚠️ 确认清空请发送：`/holdings clear confirm`"
		}
		if err := store.Save(ctx, nil); err != nil {
			return fmt.Sprintf("❌ 清空失败：%v", err)
		}
		return "✅ 已清空你的持仓。"
	case "set":
		items, err := holdings.ParseLines(payload)
		if err != nil || len(items) == 0 {
			msg := "未解析到任何持仓。\n格式：每行 `币对 价格 数量 [止损% 止盈%]`，可用逗号或空格分隔。"
			if err != nil {
				msg += "\n错误：" + err.Error()
			}
			return msg
		}
		if err := store.Save(ctx, items); err != nil {
			return fmt.Sprintf("❌ 保存持仓失败：%v", err)
		}
		reply := fmt.Sprintf("✅ 已更新你的持仓（共 %d 条）。", len(items))
		return reply + "\n\n" + s.handleRisk(ctx)
	default:
		return "用法：`/holdings list`、`/holdings set`（换行后每行一个持仓）、`/holdings clear confirm`"
	}
}

func (s *Scheduler) trySend(title, text string) {
	if err := s.Notifier.Send(s.Ctx, title, text); err != nil {
		s.logger.Error("send notification failed", zap.Error(err))
	}
}
