package utils

import (
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/anoixa/tidypics/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger 初始化全局 zerolog 日志
func SetupLogger() {
	zerolog.TimeFieldFormat = time.RFC3339
	if config.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
}

// LogIfDev 仅在开发环境输出调试日志
func LogIfDev(msg string) {
	if config.IsProduction() {
		return
	}
	log.Debug().Msg(msg)
}

// LogIfDevf 仅在开发环境输出格式化调试日志
func LogIfDevf(format string, args ...interface{}) {
	if config.IsProduction() {
		return
	}
	log.Debug().Msgf(format, args...)
}

// SanitizeLogMessage 去除日志中的不可打印字符
func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == '\n' || r == '\t' {
			sb.WriteRune(r)
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SanitizeLogFilename 截断并清理用户上传的文件名
func SanitizeLogFilename(name string) string {
	if len(name) > 80 {
		name = name[:80] + "..."
	}
	return SanitizeLogMessage(name)
}
