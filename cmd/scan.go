package cmd

import (
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
	tinybt "tinygo.org/x/bluetooth"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// scanCmd 代表设备扫描命令
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "扫描可用的蓝牙设备",
	Long: `扫描周围可用的蓝牙设备并显示设备信息。

这个命令用于发现附近的蓝牙设备，显示设备名称、地址、信号强度
和广播的服务UUID，并标注识别出的配置文件类型。
可以用于调试和设备发现。`,
	Run: runScan,
}

var (
	// 扫描特定参数
	scanDuration  time.Duration
	showRSSI      bool
	filterByName  string
	filterProfile string
	continuous    bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	// 扫描特定标志
	scanCmd.Flags().DurationVar(&scanDuration, "duration", 10*time.Second, "扫描持续时间")
	scanCmd.Flags().BoolVar(&showRSSI, "show-rssi", true, "显示信号强度 (RSSI)")
	scanCmd.Flags().StringVar(&filterByName, "filter-name", "", "按设备名称过滤")
	scanCmd.Flags().StringVar(&filterProfile, "filter-profile", "", "按配置文件过滤 (headset, a2dp, hid_host, network_access, hearing_aid, le_audio)")
	scanCmd.Flags().BoolVar(&continuous, "continuous", false, "持续扫描模式")

	// 绑定标志到 viper
	viper.BindPFlag("scan.duration", scanCmd.Flags().Lookup("duration"))
	viper.BindPFlag("scan.show_rssi", scanCmd.Flags().Lookup("show-rssi"))
	viper.BindPFlag("scan.filter_name", scanCmd.Flags().Lookup("filter-name"))
	viper.BindPFlag("scan.filter_profile", scanCmd.Flags().Lookup("filter-profile"))
	viper.BindPFlag("scan.continuous", scanCmd.Flags().Lookup("continuous"))
}

func runScan(cmd *cobra.Command, args []string) {
	cfg := bluetooth.DefaultConfig()
	cfg.LogConfig.Level = logLevel
	initLogger(cfg.LogConfig)

	log.Printf("启动 %s v%s - 设备扫描模式", AppName, AppVersion)

	// 从配置中获取参数
	duration := viper.GetDuration("scan.duration")
	showRSSI := viper.GetBool("scan.show_rssi")
	filterName := viper.GetString("scan.filter_name")
	profileFilter, filterOK := profileFromString(viper.GetString("scan.filter_profile"))
	continuous := viper.GetBool("scan.continuous")

	if viper.GetString("scan.filter_profile") != "" && !filterOK {
		log.Fatalf("未知的配置文件类型: %s", viper.GetString("scan.filter_profile"))
	}

	fmt.Printf("扫描配置:\n")
	fmt.Printf("  扫描时长: %v\n", duration)
	fmt.Printf("  显示信号强度: %v\n", showRSSI)
	if filterName != "" {
		fmt.Printf("  名称过滤: %s\n", filterName)
	}
	if filterOK {
		fmt.Printf("  配置文件过滤: %s\n", profileFilter)
	}
	fmt.Printf("  持续扫描: %v\n", continuous)
	fmt.Println()

	adapter := tinybt.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		log.Fatalf("启用蓝牙适配器失败: %v", err)
	}

	// 超时或收到信号时停止扫描
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if continuous {
			<-sigChan
		} else {
			select {
			case <-sigChan:
			case <-time.After(duration):
			}
		}
		if err := adapter.StopScan(); err != nil {
			log.Printf("停止扫描时出错: %v", err)
		}
	}()

	fmt.Println("开始扫描蓝牙设备...")
	fmt.Println("按 Ctrl+C 停止扫描")
	fmt.Println(strings.Repeat("-", 60))

	discovered := make(map[string]bool)
	deviceCount := 0
	scanStart := time.Now()

	err := adapter.Scan(func(a *tinybt.Adapter, result tinybt.ScanResult) {
		addr := result.Address.String()
		if discovered[addr] {
			return
		}
		discovered[addr] = true

		name := result.LocalName()
		if name == "" {
			name = "Unknown Device"
		}
		if filterName != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(filterName)) {
			return
		}

		uuids := collectServiceUUIDs(result)
		if filterOK && !bluetooth.SupportsProfile(uuids, profileFilter) {
			return
		}

		deviceCount++
		displayScanResult(name, addr, result, uuids, showRSSI)
	})
	if err != nil {
		log.Fatalf("设备扫描失败: %v", err)
	}

	// 显示扫描统计信息
	fmt.Printf("\n扫描统计:\n")
	fmt.Printf("  扫描时长: %v\n", time.Since(scanStart).Round(time.Second))
	fmt.Printf("  发现设备数: %d\n", deviceCount)
	fmt.Println("\n扫描完成!")
}

// collectServiceUUIDs 从广播载荷中收集可解析的服务UUID
func collectServiceUUIDs(result tinybt.ScanResult) []uuid.UUID {
	raw := result.AdvertisementPayload.ServiceUUIDs()
	uuids := make([]uuid.UUID, 0, len(raw))
	for _, u := range raw {
		if parsed, err := uuid.Parse(u.String()); err == nil {
			uuids = append(uuids, parsed)
		}
	}
	return uuids
}

// profileFromString 按字符串表示查找配置文件类型
func profileFromString(s string) (bluetooth.Profile, bool) {
	for _, profile := range bluetooth.AllProfiles() {
		if profile.String() == s {
			return profile, true
		}
	}
	return bluetooth.ProfileUnknown, false
}

// displayScanResult 显示单个设备的信息
func displayScanResult(name, addr string, result tinybt.ScanResult, uuids []uuid.UUID, showRSSI bool) {
	fmt.Printf("发现设备: %s\n", name)
	fmt.Printf("  地址: %s\n", addr)

	if showRSSI {
		fmt.Printf("  信号强度: %d dBm\n", result.RSSI)
	}

	if len(uuids) > 0 {
		fmt.Printf("  服务:\n")
		for _, u := range uuids {
			fmt.Printf("    - %s\n", u.String())
		}

		var profiles []string
		for _, profile := range bluetooth.AllProfiles() {
			if bluetooth.SupportsProfile(uuids, profile) {
				profiles = append(profiles, profile.String())
			}
		}
		if len(profiles) > 0 {
			fmt.Printf("  识别的配置文件: %s\n", strings.Join(profiles, ", "))
		}
	}

	fmt.Println()
}
