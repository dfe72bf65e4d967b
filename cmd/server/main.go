// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/auth"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/cache"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/config"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/database"
	"github.com/lindabaloyi/casino-game-mobile-dev-dev-sub003/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	auth.Init(cfg.JWTSecret)

	ctx := context.Background()
	if cfg.DatabaseURL != "" {
		if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
			logrus.Fatalf("connect database: %v", err)
		}
		defer database.DB.Close()
	} else {
		logrus.Warn("DATABASE_URL not set, persistence disabled")
	}

	if cfg.RedisAddr != "" {
		if err := cache.Init(ctx, cfg.RedisAddr, cfg.RedisPassword); err != nil {
			logrus.Fatalf("connect redis: %v", err)
		}
	} else {
		logrus.Warn("REDIS_ADDR not set, action history disabled")
	}

	srv := server.New(cfg)
	logrus.Infof("listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv.Router()); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
