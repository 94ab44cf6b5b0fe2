package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// EnvLogFile 日志文件路径，为空时输出到控制台
	EnvLogFile = "SENTINELCHECK_LOG_FILE"
	// EnvLogLevel 日志级别
	EnvLogLevel = "SENTINELCHECK_LOG_LEVEL"
)

var (
	// Logger 全局日志实例
	Logger zerolog.Logger
)

func init() {
	levelStr := os.Getenv(EnvLogLevel)
	if levelStr == "" {
		levelStr = "info" // 检查结果默认需要可见
	}
	zerolog.SetGlobalLevel(parseLevel(levelStr))

	Logger = zerolog.New(newOutput(os.Getenv(EnvLogFile))).With().Timestamp().Logger()
	log.Logger = Logger
}

// newOutput 根据配置选择日志输出
func newOutput(logFile string) io.Writer {
	if logFile != "" {
		// 日志文件，带轮转
		return &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    20, // MB
			MaxBackups: 3,
			MaxAge:     7, // 天
			Compress:   true,
		}
	}
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05.000",
	}
}

// parseLevel 解析日志级别字符串
func parseLevel(levelStr string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG", "DBG":
		return zerolog.DebugLevel
	case "INFO", "INF":
		return zerolog.InfoLevel
	case "WARNING", "WARN":
		return zerolog.WarnLevel
	case "ERROR", "ERR":
		return zerolog.ErrorLevel
	case "FATAL":
		return zerolog.FatalLevel
	case "TRACE":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetOutput 替换日志输出，保留当前级别
func SetOutput(w io.Writer) {
	Logger = Logger.Output(w)
	log.Logger = Logger
}

// SetLevel 设置日志级别
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	Logger = Logger.Level(level)
	log.Logger = Logger
}

// SetLevelFromString 从字符串设置日志级别
func SetLevelFromString(levelStr string) {
	SetLevel(parseLevel(levelStr))
}

// GetLevelString 获取当前日志级别的字符串表示
func GetLevelString() string {
	return zerolog.GlobalLevel().String()
}

// Debug 记录 DEBUG 级别日志
func Debug(format string, args ...interface{}) {
	Logger.Debug().Msgf(format, args...)
}

// Info 记录 INFO 级别日志
func Info(format string, args ...interface{}) {
	Logger.Info().Msgf(format, args...)
}

// Warning 记录 WARNING 级别日志
func Warning(format string, args ...interface{}) {
	Logger.Warn().Msgf(format, args...)
}

// Error 记录 ERROR 级别日志
func Error(format string, args ...interface{}) {
	Logger.Error().Msgf(format, args...)
}
