package main

import (
	"context"
	"log"
	"os"

	"github.com/LJTian/NewsDigest/internal/app"
	"github.com/LJTian/NewsDigest/internal/config"
	"github.com/LJTian/NewsDigest/internal/notifier"
	"github.com/LJTian/NewsDigest/internal/scheduler"
)

// 一个仅执行一次摘要任务的命令行入口：适合手动补发或由外部 cron 调用
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

	s, err := scheduler.New(cfg.CronSpec, cfg.Location(), p)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}

	// 只执行一轮后退出；投递全部失败或中止时以非 0 退出
	report, _ := s.RunOnce(context.Background())
	switch report.Outcome {
	case notifier.Delivered, notifier.NoSubscribers:
	default:
		os.Exit(1)
	}
}
