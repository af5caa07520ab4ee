package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/internal/config"
	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/internal/history"
	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/internal/watch"
	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// daemonCmd 代表守护进程命令
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "启动连接策略守护进程",
	Long: `启动连接策略守护进程，监听蓝牙栈的状态变化并自动维护连接。

守护进程从事件源接收适配器和设备事件，按持久化的连接策略
发起自动连接，并把策略变化写回连接历史存储。
策略配置文件支持运行期热更新。`,
	Run: runDaemon,
}

var (
	// 守护进程特定参数
	policyFile   string
	dataDir      string
	sourceKind   string
	adapterName  string
	quietMode    bool
	connectDelay time.Duration
)

func init() {
	rootCmd.AddCommand(daemonCmd)

	// 守护进程特定标志
	daemonCmd.Flags().StringVar(&policyFile, "policy-file", "config/btpolicyd.json", "策略配置文件路径（JSON，支持热更新）")
	daemonCmd.Flags().StringVar(&dataDir, "data-dir", "", "数据目录（覆盖策略配置）")
	daemonCmd.Flags().StringVar(&sourceKind, "source", "", "事件源类型 (bluez, ble, mock)")
	daemonCmd.Flags().StringVar(&adapterName, "adapter", "", "蓝牙适配器名称")
	daemonCmd.Flags().BoolVar(&quietMode, "quiet", false, "以静默模式启动，抑制自动连接")
	daemonCmd.Flags().DurationVar(&connectDelay, "connect-delay", 0, "跨配置文件补连延迟（覆盖策略配置）")

	// 绑定标志到 viper
	viper.BindPFlag("daemon.policy_file", daemonCmd.Flags().Lookup("policy-file"))
	viper.BindPFlag("daemon.data_dir", daemonCmd.Flags().Lookup("data-dir"))
	viper.BindPFlag("daemon.source", daemonCmd.Flags().Lookup("source"))
	viper.BindPFlag("daemon.adapter", daemonCmd.Flags().Lookup("adapter"))
	viper.BindPFlag("daemon.quiet", daemonCmd.Flags().Lookup("quiet"))
	viper.BindPFlag("daemon.connect_delay", daemonCmd.Flags().Lookup("connect-delay"))
}

func runDaemon(cmd *cobra.Command, args []string) {
	// 加载策略配置，文件缺失时使用默认配置
	manager := config.NewManager()
	cfg, err := manager.Load(policyFile)
	if err != nil {
		log.Fatalf("加载策略配置失败: %v", err)
	}
	applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("策略配置无效: %v", err)
	}

	initLogger(cfg.LogConfig)
	logger := slog.Default().With("component", "daemon")
	logger.Info("启动守护进程",
		"app", AppName,
		"version", AppVersion,
		"source", cfg.SourceConfig.Kind,
		"data_dir", cfg.StorageConfig.DataDir)

	// 创建上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接历史存储
	store := history.NewStore(cfg.StorageConfig.DataDir, cfg.StorageConfig.HistoryFile)
	if err := store.Load(); err != nil {
		logger.Warn("加载连接历史失败，从空历史开始", "error", err)
	}
	logger.Info("连接历史已就绪", "path", store.Path(), "peers", store.PeerCount())

	// 配置文件适配器，策略读存储，连接走连接器
	connector := newConnector(cfg.SourceConfig, logger)
	tracked := make(map[bluetooth.Profile]*watch.TrackedProfile)
	builder := bluetooth.NewEngineBuilder().
		WithConfig(*cfg).
		WithHistoryStore(store)
	for _, profile := range bluetooth.AllProfiles() {
		tp := watch.NewTrackedProfile(profile, store, connector)
		tracked[profile] = tp
		builder.RegisterProfile(tp)
	}

	engine, err := builder.Build()
	if err != nil {
		log.Fatalf("构建策略引擎失败: %v", err)
	}
	registerEngineCallbacks(engine, logger)

	if err := engine.Start(ctx); err != nil {
		log.Fatalf("启动策略引擎失败: %v", err)
	}

	// 事件源
	source, err := watch.NewSource(cfg.SourceConfig)
	if err != nil {
		log.Fatalf("创建事件源失败: %v", err)
	}
	if err := source.Start(ctx); err != nil {
		log.Fatalf("启动事件源失败: %v", err)
	}

	// 事件泵：镜像配置文件状态后转投引擎收件箱
	go pumpEvents(source, engine, tracked)

	// 策略配置热更新
	startConfigWatch(ctx, manager, engine, logger)

	// 设置信号处理
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 等待信号
	select {
	case sig := <-sigChan:
		logger.Info("收到信号，正在关闭守护进程", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		logger.Info("守护进程上下文已取消")
	}

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), bluetooth.DefaultShutdownTimeout)
	defer shutdownCancel()

	if err := gracefulShutdown(shutdownCtx, source, engine); err != nil {
		logger.Error("守护进程优雅关闭失败", "error", err)
	} else {
		logger.Info("守护进程已成功关闭")
	}
}

// applyOverrides 把命令行显式设置的值覆盖到策略配置上
func applyOverrides(cmd *cobra.Command, cfg *bluetooth.PolicyConfig) {
	if v := viper.GetString("daemon.data_dir"); v != "" {
		cfg.StorageConfig.DataDir = v
	}
	if v := viper.GetString("daemon.source"); v != "" {
		cfg.SourceConfig.Kind = v
	}
	if v := viper.GetString("daemon.adapter"); v != "" {
		cfg.SourceConfig.AdapterName = v
	}
	if v := viper.GetDuration("daemon.connect_delay"); v > 0 {
		cfg.EngineConfig.ConnectOtherTimeout = v
	}
	if cmd.Flags().Changed("quiet") {
		cfg.EngineConfig.QuietMode = quietMode
	}
	if cmd.Flag("log-level").Changed {
		cfg.LogConfig.Level = logLevel
	}
}

// newConnector 按事件源类型选择连接器。BlueZ 事件源配合 D-Bus
// 连接器闭环，其余事件源只记录连接决定
func newConnector(cfg bluetooth.SourceConfig, logger *slog.Logger) watch.ProfileConnector {
	if cfg.Kind == bluetooth.SourceKindBlueZ {
		connector, err := watch.NewDBusConnector(cfg.AdapterName)
		if err != nil {
			logger.Warn("D-Bus 连接器不可用，回退到日志连接器", "error", err)
			return watch.NewLogConnector()
		}
		return connector
	}
	return watch.NewLogConnector()
}

// registerEngineCallbacks 订阅引擎通知并写入日志
func registerEngineCallbacks(engine *bluetooth.PolicyEngine, logger *slog.Logger) {
	callbacks := engine.Callbacks()
	callbacks.RegisterConnectCallback(func(peer bluetooth.Address, profile bluetooth.Profile, reason bluetooth.ConnectReason) {
		logger.Info("发起自动连接",
			"peer", peer.String(),
			"profile", profile.String(),
			"reason", reason.String())
	})
	callbacks.RegisterPolicyCallback(func(peer bluetooth.Address, profile bluetooth.Profile, policy bluetooth.PolicyDecision) {
		logger.Info("连接策略变化",
			"peer", peer.String(),
			"profile", profile.String(),
			"policy", policy.String())
	})
	callbacks.RegisterRetryCallback(func(peer bluetooth.Address, delay time.Duration) {
		logger.Debug("调度补连", "peer", peer.String(), "delay", delay)
	})
	callbacks.RegisterResetCallback(func() {
		logger.Debug("补连会话已重置")
	})
}

// pumpEvents 把事件源的事件转投引擎收件箱，配置文件状态变化
// 先馈入对应的适配器镜像。事件源停止后通道关闭，泵随之退出
func pumpEvents(source watch.EventSource, engine *bluetooth.PolicyEngine, tracked map[bluetooth.Profile]*watch.TrackedProfile) {
	for event := range source.Events() {
		if event.Type == bluetooth.EventTypeProfileStateChanged {
			if tp, ok := tracked[event.Profile]; ok {
				tp.ObserveState(event.Peer, event.NextState)
			}
		}
		engine.PostEvent(event)
	}
}

// startConfigWatch 监控策略配置文件变化并应用可热更新的设置
func startConfigWatch(ctx context.Context, manager config.Manager, engine *bluetooth.PolicyEngine, logger *slog.Logger) {
	changes, err := manager.Watch(ctx, policyFile)
	if err != nil {
		logger.Warn("无法监控策略配置文件", "error", err)
		return
	}

	manager.Subscribe(func(oldCfg, newCfg *bluetooth.PolicyConfig) error {
		engine.SetQuietMode(newCfg.EngineConfig.QuietMode)
		logger.Info("已应用策略配置变更",
			"quiet_mode", newCfg.EngineConfig.QuietMode)
		return nil
	})

	go func() {
		for newCfg := range changes {
			if err := manager.Apply(newCfg); err != nil {
				logger.Warn("应用策略配置变更失败", "error", err)
			}
		}
	}()
}

// gracefulShutdown 按依赖顺序停止事件源和策略引擎
func gracefulShutdown(ctx context.Context, source watch.EventSource, engine *bluetooth.PolicyEngine) error {
	done := make(chan struct{})
	go func() {
		if err := source.Stop(); err != nil {
			slog.Default().Warn("停止事件源失败", "error", err)
		}
		if err := engine.Stop(); err != nil {
			slog.Default().Warn("停止策略引擎失败", "error", err)
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
