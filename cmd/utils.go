package cmd

import (
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/GenesisOS-Staging/packages-modules-Bluetooth/pkg/bluetooth"
)

// initLogger 按日志配置初始化全局 slog 记录器，
// 各组件通过 slog.Default() 继承这里的设置
func initLogger(cfg bluetooth.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
		log.Printf("未知日志级别 '%s'，使用默认级别 INFO", cfg.Level)
	}

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Printf("无法打开日志文件 %s: %v，回退到标准输出", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	slog.SetDefault(slog.New(handler))
}
