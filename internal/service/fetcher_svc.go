package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/config"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/loader"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
)

// FetcherService 外部详情抓取器边界
// 抓取器是不透明子进程: 参数约定为 URL 商品ID 输出目录，
// 输出为 {colors, sizes, images, product, sizeSectionText|sizeChart} JSON
type FetcherService struct {
	cfg *config.ScraperConfig

	mu        sync.Mutex
	lastFetch time.Time
}

// NewFetcherService 创建抓取服务
func NewFetcherService(cfg *config.ScraperConfig) *FetcherService {
	if cfg.FetchInterval <= 0 {
		cfg.FetchInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	return &FetcherService{cfg: cfg}
}

// Enabled 未配置抓取命令时整个详情抓取旁路
func (s *FetcherService) Enabled() bool {
	return s.cfg.Command != ""
}

// NeedsDetail 核心规格字段缺失且尚无抓取数据时才值得抓取
func NeedsDetail(p *model.Product) bool {
	if p.DetailData() != nil {
		return false
	}
	return len(p.Colors) == 0 || len(p.Sizes) == 0 || len(p.AllImages()) == 0
}

// Fetch 调用抓取器子进程并把输出并入商品
// 相邻两次抓取之间强制冷却 fetch_interval，单次硬超时 timeout
func (s *FetcherService) Fetch(ctx context.Context, p *model.Product) error {
	if !s.Enabled() {
		return fmt.Errorf("未配置抓取命令")
	}
	if p.DetailURL == "" {
		return fmt.Errorf("商品 %s 缺少详情链接", p.ProductID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if wait := s.cfg.FetchInterval - time.Since(s.lastFetch); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	defer func() { s.lastFetch = time.Now() }()

	outputDir, err := os.MkdirTemp("", "detail_fetch_*")
	if err != nil {
		return fmt.Errorf("创建抓取输出目录失败: %v", err)
	}
	defer os.RemoveAll(outputDir)

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	parts := strings.Fields(s.cfg.Command)
	args := append(parts[1:], p.DetailURL, p.ProductID, outputDir)
	cmd := exec.CommandContext(runCtx, parts[0], args...)

	stdout, err := cmd.Output()
	if runCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("抓取器超时 (%s): %s", s.cfg.Timeout, p.ProductID)
	}
	if err != nil {
		return fmt.Errorf("抓取器执行失败: %v", err)
	}

	detail, err := readFetchOutput(outputDir, p.ProductID, stdout)
	if err != nil {
		return err
	}

	loader.ApplyDetail(p, detail)
	log.Printf("[Fetcher] %s 详情抓取完成", p.ProductID)
	return nil
}

// readFetchOutput 优先读输出目录下的 {商品ID}.json，退化为解析 stdout
func readFetchOutput(outputDir, productID string, stdout []byte) (map[string]any, error) {
	var raw []byte
	path := filepath.Join(outputDir, productID+".json")
	if data, err := os.ReadFile(path); err == nil {
		raw = data
	} else {
		raw = stdout
	}

	var detail map[string]any
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("解析抓取器输出失败: %v", err)
	}
	return detail, nil
}
