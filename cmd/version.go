package cmd

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"
)

// versionCmd 代表版本命令
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Long: `显示 btpolicyd 的详细版本信息，包括：
• 应用程序版本
• Go 版本
• 构建信息
• 系统信息`,
	Run: showVersion,
}

var (
	// 构建时注入的变量
	buildTime = "unknown"
	gitCommit = "unknown"
	gitBranch = "unknown"
	buildUser = "unknown"
	buildHost = "unknown"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

func showVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("%s v%s\n", AppName, AppVersion)
	fmt.Printf("%s\n\n", AppDesc)

	fmt.Println("版本信息:")
	fmt.Printf("  应用版本: %s\n", AppVersion)
	fmt.Printf("  Go 版本:  %s\n", runtime.Version())
	fmt.Printf("  系统架构: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  CPU 核心: %d\n", runtime.NumCPU())

	fmt.Println("\n构建信息:")
	if buildTime != "unknown" {
		fmt.Printf("  构建时间: %s\n", buildTime)
	} else {
		fmt.Printf("  构建时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("  Git 提交: %s\n", gitCommit)
	fmt.Printf("  Git 分支: %s\n", gitBranch)
	fmt.Printf("  构建用户: %s\n", buildUser)
	fmt.Printf("  构建主机: %s\n", buildHost)

	fmt.Println("\n技术栈:")
	fmt.Println("  • Go 1.25.1 - 现代化 Go 语言特性")
	fmt.Println("  • BlueZ D-Bus - 蓝牙栈事件订阅")
	fmt.Println("  • BLE 广播扫描 - 无管理通道部署的服务发现")
	fmt.Println("  • Cobra CLI - 强大的命令行框架")
	fmt.Println("  • Viper - 灵活的配置管理")

	fmt.Println("\n核心功能:")
	fmt.Println("  • 上电自动连接最近的音频设备")
	fmt.Println("  • 服务发现后的连接策略提升")
	fmt.Println("  • 跨配置文件延迟补连")
	fmt.Println("  • 连接历史持久化和排序")
	fmt.Println("  • 策略配置热更新")
	fmt.Println("  • 静默模式抑制自动连接")
}
