package task

import (
	"context"
	"log"
	"sync"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/service"
)

// 标题预生成的并发上限，GLM 客户端内部仍然串行限速
const maxTitleWorkers = 6

// PreGenerateTitles 在流式循环前为候选集预生成标题
// 返回 商品ID -> 标题 和走了模板兜底的商品ID列表
func PreGenerateTitles(ctx context.Context, titles *service.TitleService, candidates []*model.Product, workers int) (map[string]string, []string) {
	if workers > maxTitleWorkers {
		workers = maxTitleWorkers
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}
	if workers <= 0 || titles == nil {
		return nil, nil
	}

	type titleResult struct {
		productID string
		title     string
		fellBack  bool
	}

	jobs := make(chan *model.Product)
	results := make(chan titleResult, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				title, err := titles.Generate(ctx, p)
				results <- titleResult{productID: p.ProductID, title: title, fellBack: err != nil}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range candidates {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string]string, len(candidates))
	var fellBack []string
	for r := range results {
		out[r.productID] = r.title
		if r.fellBack {
			fellBack = append(fellBack, r.productID)
		}
	}
	log.Printf("[Title] 预生成完成: %d/%d (兜底 %d)", len(out), len(candidates), len(fellBack))
	return out, fellBack
}
