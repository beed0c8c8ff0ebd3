// Baize 入口：加载配置、装配各组件、启动监控器与周期分析。
// -once 做一次全量扫描并把风险报告打到 stdout 后退出。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/fatih/color"

	"baize/internal/analyzers"
	"baize/internal/baseline"
	"baize/internal/config"
	"baize/internal/enrich"
	"baize/internal/escalate"
	"baize/internal/history"
	"baize/internal/models"
	"baize/internal/monitor"
	"baize/internal/notify"
	"baize/internal/scanner"
	"baize/internal/stream"
	"baize/internal/watcher"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (or set CONFIG_PATH)")
	once := flag.Bool("once", false, "single scan + risk report to stdout, then exit")
	flag.Parse()

	// 配置：.env 覆盖敏感项；主配置仅 YAML
	_ = config.LoadEnvFile(".env", true)
	if *configPath == "" {
		*configPath = os.Getenv("CONFIG_PATH")
	}
	var cfg *config.Config
	var err error
	if *configPath == "" {
		if _, statErr := os.Stat("config.yaml"); statErr == nil {
			*configPath = "config.yaml"
		}
	}
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config load: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg = config.Default()
	}

	// 采集器：plist 解析、签名校验等由 darwin 采集方提供；
	// 未接入前使用内存实现，便于演示与 -once 冒烟
	scn := scanner.NewMemoryScanner()
	wtch := watcher.NewFakeWatcher()

	if *once {
		runOnce(cfg, scn)
		return
	}

	printBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baselineStore, historyStore, err := openStores(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage: %v\n", err)
		os.Exit(1)
	}

	var notifier notify.Notifier
	if cfg.Notify.Feishu.Enabled && cfg.Notify.Feishu.AppID != "" && cfg.Notify.Feishu.AppSecret != "" {
		notifier = notify.NewFeishuNotifier(cfg.Notify.Feishu)
		fmt.Fprintf(os.Stderr, "[baize] 飞书投递已启用\n")
	} else {
		notifier = notify.LogNotifier{}
		if cfg.Notify.Feishu.Enabled {
			fmt.Fprintf(os.Stderr, "[baize] 飞书未配置 app_id/app_secret，告警只写进程日志。设置 BAIZE_FEISHU_APP_ID、BAIZE_FEISHU_APP_SECRET 后可收到飞书消息\n")
		}
	}

	var classifier escalate.Classifier
	var aiClient *escalate.Client
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		aiClient = escalate.NewClient(cfg.AI)
		classifier = &escalate.AIClassifier{Client: aiClient, Enricher: enrich.NewResolver()}
		fmt.Fprintf(os.Stderr, "[baize] AI 升级已启用: %s\n", cfg.AI.Model)
	} else if cfg.AI.Enabled {
		fmt.Fprintf(os.Stderr, "[baize] AI 已启用但缺少 BAIZE_AI_API_KEY，回退确定性分类\n")
	}

	var hub *stream.Hub
	var publisher monitor.Publisher
	if cfg.Stream.Enabled {
		hub = stream.NewHub()
		publisher = hub
		go func() {
			if err := hub.Serve(ctx, cfg.Stream.ListenAddr); err != nil {
				fmt.Fprintf(os.Stderr, "[baize] stream serve: %v\n", err)
			}
		}()
		fmt.Fprintf(os.Stderr, "[baize] 事件流: ws://%s/events\n", cfg.Stream.ListenAddr)
	}

	mon := monitor.New(monitor.Options{
		Config:     cfg.Monitor,
		Scanner:    scn,
		Baseline:   baselineStore,
		History:    historyStore,
		Watcher:    wtch,
		Classifier: classifier,
		Notifier:   notifier,
		Publisher:  publisher,
	})

	notify.EnsurePermission(ctx)
	notify.RunLongConnection(ctx, cfg.Notify.Feishu, func(recordID string) error {
		return historyStore.Acknowledge(context.Background(), recordID)
	})

	if err := mon.Start(ctx); err != nil {
		color.Red("监控器启动失败: %v", err)
		os.Exit(1)
	}
	color.Green("✓ 监控器已启动")

	if n, err := mon.PruneHistory(ctx); err == nil && n > 0 {
		fmt.Fprintf(os.Stderr, "[baize] 历史清理: 删除 %d 条过期记录\n", n)
	}

	// 周期性全量差异分析（AI 路径可用时）
	if aiClient != nil && cfg.AI.PeriodicMinutes > 0 {
		loop := &escalate.PeriodicLoop{
			Client:    aiClient,
			Interval:  time.Duration(cfg.AI.PeriodicMinutes) * time.Minute,
			Threshold: cfg.AI.NotifyAtSeverity,
			Snapshot: func(ctx context.Context) ([]models.PersistenceItem, error) {
				return snapshotBaseline(ctx, baselineStore)
			},
			Notify: func(ctx context.Context, verdict *escalate.DiffVerdict) {
				color.Yellow("[周期分析 %s] %s", verdict.Severity, verdict.Summary)
			},
		}
		go loop.Run(ctx)
	}

	<-ctx.Done()
	color.Yellow("收到退出信号，停止监控...")
	mon.Stop()
	color.Green("✓ 已停止")
}

// openStores 打开 SQLite 存储；未配置路径时用内存实现。
func openStores(ctx context.Context, cfg *config.Config) (baseline.Store, history.Store, error) {
	if cfg.Storage.Path == "" {
		return baseline.NewMemoryStore(), history.NewMemoryStore(), nil
	}
	db, err := baseline.OpenSQLite(ctx, cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	baselineStore, err := baseline.NewSQLiteStore(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	historyStore, err := history.NewSQLiteStore(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	return baselineStore, historyStore, nil
}

// snapshotBaseline 把全部类别的基线拼成一个条目集。
func snapshotBaseline(ctx context.Context, store baseline.Store) ([]models.PersistenceItem, error) {
	var all []models.PersistenceItem
	for _, category := range models.AllCategories {
		items, err := store.Get(ctx, category)
		if err != nil {
			continue
		}
		all = append(all, items...)
	}
	return all, nil
}

// runOnce 单次扫描并打印风险报告。
func runOnce(cfg *config.Config, scn scanner.Scanner) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	items, err := scn.ScanAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan: %v\n", err)
		os.Exit(1)
	}
	now := time.Now()
	for i := range items {
		items[i].Analysis = analyzers.Analyze(&items[i], now)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Analysis.RiskScore > items[j].Analysis.RiskScore
	})
	color.Cyan("Baize 持久化项风险报告（%d 项）", len(items))
	for _, item := range items {
		a := item.Analysis
		line := fmt.Sprintf("%3d  %-10s  %-20s %s", a.RiskScore, a.RiskTier, item.Category, item.Identifier)
		switch a.RiskTier {
		case models.SeverityCritical:
			color.Red(line)
		case models.SeverityHigh:
			color.Yellow(line)
		default:
			fmt.Println(line)
		}
		for _, factor := range a.RiskFactors {
			fmt.Printf("       - %s\n", factor)
		}
	}
}

func printBanner(cfg *config.Config) {
	color.Cyan("╔══════════════════════════════════════╗")
	color.Cyan("║  Baize  macOS 持久化项监控            ║")
	color.Cyan("╚══════════════════════════════════════╝")
	fmt.Fprintf(os.Stderr, "  去抖: %ds  冷却: %dh  阈值: %d\n",
		cfg.Monitor.DebounceSeconds, cfg.Monitor.CooldownHours, cfg.Monitor.MinRelevanceScore)
}
