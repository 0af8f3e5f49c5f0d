package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/NewsDigest/internal/api"
	"github.com/LJTian/NewsDigest/internal/app"
	"github.com/LJTian/NewsDigest/internal/config"
	"github.com/LJTian/NewsDigest/internal/scheduler"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	store, err := app.NewSubscriberStore(cfg)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	p, err := app.NewPipeline(cfg, store)
	if err != nil {
		log.Fatalf("init pipeline failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := scheduler.New(cfg.CronSpec, cfg.Location(), p)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start(ctx)

	// API
	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}
	// 订阅者名单始终需要认证，未配置账号时列表与退订接口返回 403
	api.NewServer(store, s).
		WithAdminAuth(cfg.BasicAuthUser, cfg.BasicAuthPass).
		RegisterRoutes(r)

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		log.Printf("starting api server at %s ...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server exit: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	<-s.Stop().Done()
}
