package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/LJTian/NewsDigest/internal/collector"
	"github.com/LJTian/NewsDigest/internal/config"
)

// 抓取单个数据源并以 JSON 打印抽取结果，用于调试选择器；不读取订阅者、不发邮件
func main() {
	name := flag.String("source", "", "source name to preview (default: all)")
	bodies := flag.Bool("bodies", false, "also load article bodies with readability")
	flag.Parse()

	cfg := config.Load()
	sources, err := collector.SourcesFromConfig(cfg.Sources)
	if err != nil {
		log.Fatalf("load sources failed: %v", err)
	}

	httpFetcher := collector.NewHTTPFetcher(cfg.FetchTimeout)
	browser := collector.NewBrowserFetcher(cfg.RenderTimeout)
	browser.ExecPath = cfg.ChromePath
	router := &collector.Router{Direct: httpFetcher, Rendered: browser}
	loader := collector.NewBodyLoader(httpFetcher)

	out := make(map[string][]collector.Article)
	for _, src := range sources {
		if *name != "" && src.Name != *name {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		raw, err := router.Fetch(ctx, src)
		if err != nil {
			log.Printf("fetch %s error: %v", src.Name, err)
			cancel()
			continue
		}
		articles := collector.Extract(raw, src, cfg.TopN)
		if *bodies {
			for i := range articles {
				text, err := loader.Load(ctx, articles[i].Link)
				if err != nil {
					log.Printf("load body %s error: %v", articles[i].Link, err)
					continue
				}
				articles[i].Summary = truncate(text, 300)
			}
		}
		cancel()
		out[src.Name] = articles
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

// rune 级截断，避免截断成半个字符
func truncate(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "…"
}
