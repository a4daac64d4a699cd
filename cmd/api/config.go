package main

import (
	"strconv"
	"time"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

func stringOr(cfg *config.Config, key, def string) string {
	if v := cfg.GetString(key); v != "" {
		return v
	}
	return def
}

func intOr(cfg *config.Config, key string, def int) int {
	raw := cfg.GetString(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		zlog.Logger.Warn().Str("key", key).Str("value", raw).Int("default", def).Msg("Invalid int in config, using default")
		return def
	}
	return v
}

func durationOr(cfg *config.Config, key string, def time.Duration) time.Duration {
	raw := cfg.GetString(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		zlog.Logger.Warn().Str("key", key).Str("value", raw).Dur("default", def).Msg("Invalid duration in config, using default")
		return def
	}
	return v
}
