package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// 应用程序版本信息
const (
	AppName    = "btpolicyd"
	AppVersion = "1.0.0"
	AppDesc    = "蓝牙连接策略引擎"
)

var (
	// 全局配置文件路径
	cfgFile string
	// 全局日志级别
	logLevel string
)

// rootCmd 代表基础命令，当不带任何子命令调用时执行
var rootCmd = &cobra.Command{
	Use:   "btpolicyd",
	Short: "btpolicyd - 蓝牙连接策略引擎",
	Long: `btpolicyd 是一个用 Go 语言开发的蓝牙连接策略守护进程，
监听蓝牙栈的状态变化并自动维护设备的配置文件连接。

支持的功能：
• 上电自动连接：适配器上电后自动连接最近使用的音频设备
• 策略提升：根据服务发现结果把未知策略提升为允许
• 跨配置文件补连：一个配置文件连上后延迟补连其余配置文件
• 连接历史持久化：按设备按配置文件记录策略和连接时间
• 多事件源：支持 BlueZ D-Bus、BLE 广播扫描和模拟事件源`,
	Version: AppVersion,
}

// Execute 添加所有子命令到根命令并设置标志
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局标志，在这里定义标志并绑定到配置
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认为 $HOME/.btpolicyd.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "日志级别 (debug, info, warn, error)")

	// Cobra 也支持本地标志，只在直接调用此操作时运行
	rootCmd.Flags().BoolP("version", "v", false, "显示版本信息")
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if cfgFile != "" {
		// 使用命令行指定的配置文件
		viper.SetConfigFile(cfgFile)
	} else {
		// 查找主目录
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// 在主目录中搜索名为 ".btpolicyd" 的配置文件（不带扩展名）
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.SetConfigType("yaml")
		viper.SetConfigName("btpolicyd")
	}

	// 读取环境变量
	viper.AutomaticEnv()

	// 如果找到配置文件，则读取它
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "使用配置文件:", viper.ConfigFileUsed())
	}
}

// GetRootCommand 返回根命令，主要用于测试
func GetRootCommand() *cobra.Command {
	return rootCmd
}
