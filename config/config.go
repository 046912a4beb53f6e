// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション設定を表す。
type Config struct {
	Port               string
	DatabaseURL        string
	AutoMigrate        bool
	KMSKeyName         string
	GoogleCloudProject string
	LogLevel           string

	OtelEnabled      bool
	OtelEndpoint     string
	OtelInsecure     bool
	OtelServiceName  string
	OtelSamplingRate float64

	// デモの演出用ディレイ
	StepDelay  time.Duration
	PauseDelay time.Duration

	DefaultMessage string
	MaxDemos       int

	// 鍵生成に使う素数・公開指数の候補
	PrimePool    []int64
	ExponentPool []int64
}

// Load は環境変数から設定を読み込む。
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		AutoMigrate:        getEnvBool("AUTO_MIGRATE", false),
		KMSKeyName:         os.Getenv("KMS_KEY_NAME"),
		GoogleCloudProject: os.Getenv("GOOGLE_CLOUD_PROJECT"),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		OtelEnabled:        getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:       getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OtelInsecure:       getEnvBool("OTEL_INSECURE", false),
		OtelServiceName:    getEnv("OTEL_SERVICE_NAME", "rsa-visualizer-service"),
		OtelSamplingRate:   getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
		StepDelay:          getEnvDuration("STEP_DELAY", time.Second),
		PauseDelay:         getEnvDuration("PAUSE_DELAY", 1500*time.Millisecond),
		DefaultMessage:     getEnv("DEFAULT_MESSAGE", "Hello Bob!"),
		MaxDemos:           getEnvInt("MAX_DEMOS", 100),
		PrimePool:          getEnvInts("PRIME_POOL"),
		ExponentPool:       getEnvInts("EXPONENT_POOL"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// warnInvalid は解釈できない値を無視してデフォルトを使うことを警告する。
func warnInvalid(key, raw string, err error) {
	slog.Warn("ignoring invalid environment variable, using default",
		"key", key,
		"value", raw,
		"error", err,
	)
}

func getEnvBool(key string, defaultVal bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		warnInvalid(key, raw, err)
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		warnInvalid(key, raw, err)
		return defaultVal
	}
	return val
}

func getEnvFloat(key string, defaultVal float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		warnInvalid(key, raw, err)
		return defaultVal
	}
	return val
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		warnInvalid(key, raw, err)
		return defaultVal
	}
	return val
}

// getEnvInts はカンマ区切りの整数リストを読み込む。未設定・不正な場合はnilを返す。
func getEnvInts(key string) []int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var vals []int64
	for _, s := range strings.Split(raw, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			warnInvalid(key, raw, err)
			return nil
		}
		vals = append(vals, v)
	}
	return vals
}
