package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// simulateCmd 代表策略流程演示命令
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "用模拟设备演示策略引擎流程",
	Long: `用模拟的配置文件子系统和连接历史演示完整的策略流程。

演示脚本依次触发：适配器上电自动连接、服务发现策略提升、
配置文件连接后的跨配置文件补连。全程不需要真实蓝牙硬件，
适合验证策略配置和观察引擎行为。`,
	Run: runSimulate,
}

var (
	// 演示特定参数
	simPeer    string
	simDelay   time.Duration
	simQuiet   bool
	simLEAudio bool
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	// 演示特定标志
	simulateCmd.Flags().StringVar(&simPeer, "peer", "AA:BB:CC:DD:EE:01", "模拟设备地址")
	simulateCmd.Flags().DurationVar(&simDelay, "connect-delay", 2*time.Second, "跨配置文件补连延迟")
	simulateCmd.Flags().BoolVar(&simQuiet, "quiet", false, "以静默模式运行引擎")
	simulateCmd.Flags().BoolVar(&simLEAudio, "le-audio", false, "启用 LE 音频策略提升")

	// 绑定标志到 viper
	viper.BindPFlag("simulate.peer", simulateCmd.Flags().Lookup("peer"))
	viper.BindPFlag("simulate.connect_delay", simulateCmd.Flags().Lookup("connect-delay"))
	viper.BindPFlag("simulate.quiet", simulateCmd.Flags().Lookup("quiet"))
	viper.BindPFlag("simulate.le_audio", simulateCmd.Flags().Lookup("le-audio"))
}

func runSimulate(cmd *cobra.Command, args []string) {
	cfg := bluetooth.DefaultConfig()
	cfg.LogConfig.Level = logLevel
	initLogger(cfg.LogConfig)

	log.Printf("启动 %s v%s - 策略流程演示", AppName, AppVersion)

	peer := bluetooth.Address(viper.GetString("simulate.peer"))
	delay := viper.GetDuration("simulate.connect_delay")

	// 模拟的配置文件子系统和连接历史
	store := bluetooth.NewMockHistoryStore()
	services := make(map[bluetooth.Profile]*bluetooth.MockProfileService)
	builder := bluetooth.NewEngineBuilder().
		WithConnectOtherTimeout(delay).
		WithFlags(bluetooth.FlagsConfig{
			NetworkAccessPromotion: true,
			HearingAidSupported:    true,
			LEAudioEnabled:         simLEAudio,
		}).
		WithHistoryStore(store)
	if simQuiet {
		builder.EnableQuietMode()
	}
	for _, profile := range bluetooth.AllProfiles() {
		svc := bluetooth.NewMockProfileService(profile)
		services[profile] = svc
		builder.RegisterProfile(svc)
	}

	engine, err := builder.Build()
	if err != nil {
		log.Fatalf("构建策略引擎失败: %v", err)
	}

	// 订阅引擎通知，直接打印到终端
	callbacks := engine.Callbacks()
	callbacks.RegisterConnectCallback(func(p bluetooth.Address, profile bluetooth.Profile, reason bluetooth.ConnectReason) {
		fmt.Printf("  -> 发起连接: %s / %s（原因: %s）\n", p, profile, reason)
	})
	callbacks.RegisterPolicyCallback(func(p bluetooth.Address, profile bluetooth.Profile, policy bluetooth.PolicyDecision) {
		fmt.Printf("  -> 策略提升: %s / %s => %s\n", p, profile, policy)
		// 真实部署中配置文件子系统从存储读取策略，这里手动同步
		services[profile].SetPolicy(p, policy)
	})
	callbacks.RegisterRetryCallback(func(p bluetooth.Address, d time.Duration) {
		fmt.Printf("  -> 调度补连: %s（延迟 %v）\n", p, d)
	})
	callbacks.RegisterResetCallback(func() {
		fmt.Println("  -> 补连会话已重置")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		log.Fatalf("启动策略引擎失败: %v", err)
	}

	// 设置信号处理，允许中途退出
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	runScenario(engine, store, services, peer, delay, sigChan)

	if err := engine.Stop(); err != nil {
		log.Printf("停止策略引擎失败: %v", err)
	}
	printSummary(engine, services, peer)
}

// runScenario 按脚本触发事件并等待引擎响应
func runScenario(engine *bluetooth.PolicyEngine, store *bluetooth.MockHistoryStore,
	services map[bluetooth.Profile]*bluetooth.MockProfileService,
	peer bluetooth.Address, delay time.Duration, sigChan <-chan os.Signal) {

	fmt.Println(strings.Repeat("-", 60))

	// 预置历史：该设备上次以音频活动状态连接，音频配置文件允许自动连接
	store.SetMostRecentAudioPeer(peer)
	services[bluetooth.ProfileA2DP].SetPolicy(peer, bluetooth.PolicyAllowed)
	services[bluetooth.ProfileHeadset].SetPolicy(peer, bluetooth.PolicyAllowed)

	fmt.Println("步骤 1: 适配器上电，自动连接最近的音频设备")
	engine.NotifyAdapterPoweredOn()
	if !pause(time.Second, sigChan) {
		return
	}

	fmt.Println("步骤 2: 新设备完成服务发现，未知策略被提升")
	newPeer := bluetooth.Address("AA:BB:CC:DD:EE:02")
	engine.NotifyServiceUUIDs(newPeer, []uuid.UUID{
		bluetooth.UUIDAudioSink,
		bluetooth.UUIDHandsfree,
		bluetooth.UUIDPANU,
	})
	if !pause(time.Second, sigChan) {
		return
	}

	fmt.Println("步骤 3: 音频配置文件连接成功，延迟补连其余配置文件")
	services[bluetooth.ProfileA2DP].SetState(peer, bluetooth.StateConnected)
	engine.NotifyProfileStateChanged(peer, bluetooth.ProfileA2DP,
		bluetooth.StateConnecting, bluetooth.StateConnected)
	if !pause(delay+time.Second, sigChan) {
		return
	}

	fmt.Println("步骤 4: 设备全部断开，补连记录被清理")
	services[bluetooth.ProfileA2DP].SetState(peer, bluetooth.StateDisconnected)
	engine.NotifyProfileStateChanged(peer, bluetooth.ProfileA2DP,
		bluetooth.StateConnected, bluetooth.StateDisconnected)
	pause(time.Second, sigChan)
}

// pause 等待指定时长，收到终止信号时返回 false
func pause(d time.Duration, sigChan <-chan os.Signal) bool {
	select {
	case <-time.After(d):
		return true
	case sig := <-sigChan:
		log.Printf("收到信号 %v，提前结束演示", sig)
		return false
	}
}

// printSummary 打印演示结果汇总
func printSummary(engine *bluetooth.PolicyEngine, services map[bluetooth.Profile]*bluetooth.MockProfileService, peer bluetooth.Address) {
	stats := engine.GetStats()

	fmt.Println(strings.Repeat("-", 60))
	fmt.Println("演示结果:")
	fmt.Printf("  已处理事件: %d（丢弃 %d）\n", stats.EventsProcessed, stats.EventsDropped)
	fmt.Printf("  发起连接: %d 次\n", stats.ConnectsIssued)
	fmt.Printf("  调度补连: %d 次\n", stats.RetriesScheduled)
	fmt.Printf("  策略提升: %d 项\n", stats.PoliciesPromoted)
	fmt.Printf("  会话重置: %d 次\n", stats.SessionResets)

	fmt.Println("\n每配置文件连接请求:")
	for _, profile := range bluetooth.AllProfiles() {
		count := services[profile].ConnectCallCount(peer)
		if count > 0 {
			fmt.Printf("  %-15s %d 次\n", profile.String(), count)
		}
	}
}
