package main

import (
	"go.uber.org/zap"
)

func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.Env == "prod" || cfg.Env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
