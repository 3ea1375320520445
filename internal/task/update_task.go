package task

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/loader"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/normalize"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/service"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/feishu"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/utils"
)

// ==================== 流式更新 ====================

// UpdateOptions 一次运行的全部开关
type UpdateOptions struct {
	InputPath     string
	Streaming     bool // 启用续跑进度
	ForceUpdate   bool // 非空字段也重写
	TitleOnly     bool
	CategoryOnly  bool
	DryRun        bool
	NoResume      bool
	Timeout       time.Duration // 单品软超时，只报告不打断
	SaveInterval  int           // 进度落盘步长
	ParallelTitle int           // 标题预生成并发数，0 关闭
	ExportPath    string        // 非空时把装配结果导出为 xlsx
}

// UpdateResult 运行汇总
type UpdateResult struct {
	RunID string

	CandidatesCount int
	SuccessCount    int
	SkippedCount    int

	TitleFailed       []string
	AssemblyFailed    []string
	FeishuWriteFailed []string

	FailedBatches int
	TotalBatches  int

	ResumePath string
}

// UpdateTask 流式更新编排器
// 每个商品是独立的失败边界: 单品出错记入汇总，运行继续
type UpdateTask struct {
	Client    feishu.BitableClient
	Assembler *service.AssemblerService
	Fetcher   *service.FetcherService
	Titles    *service.TitleService
}

// Run 执行一次完整的同步
func (t *UpdateTask) Run(ctx context.Context, opts UpdateOptions) (*UpdateResult, error) {
	if opts.SaveInterval <= 0 {
		opts.SaveInterval = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	result := &UpdateResult{RunID: uuid.NewString()}
	start := time.Now()

	// 1. 装载输入
	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("读取输入失败: %v", err)
	}
	loaded, format, err := loader.Load(data)
	if err != nil {
		return nil, err
	}
	products := make([]*model.Product, len(loaded))
	for i := range loaded {
		products[i] = &loaded[i]
	}
	log.Printf("[Update] 输入形态 %s，共 %d 条商品", format, len(products))

	// 2. 远端快照
	snapshot, err := t.Client.GetRecords(ctx)
	if err != nil {
		return nil, err
	}

	// 3+4. 对账并补建缺失记录
	snapshot, err = t.reconcile(ctx, products, snapshot, opts.DryRun)
	if err != nil {
		return nil, err
	}

	// 5. 选出候选
	targets := targetFields(opts)
	candidates := selectCandidates(products, snapshot, targets, opts.ForceUpdate)
	result.CandidatesCount = len(candidates)

	// 6. 续跑扣减
	resume := NewResumeStore(opts.InputPath, start)
	result.ResumePath = resume.Path()
	if opts.Streaming && !opts.NoResume {
		if prior := resume.LoadLatest(); prior != nil {
			var rest []*model.Product
			for _, p := range candidates {
				if prior.Contains(p.ProductID) {
					result.SkippedCount++
					continue
				}
				rest = append(rest, p)
			}
			candidates = rest
		}
	}

	// 可选: 标题预生成池
	var preTitles map[string]string
	if opts.ParallelTitle > 0 && !opts.CategoryOnly {
		var titleFailed []string
		preTitles, titleFailed = PreGenerateTitles(ctx, t.Titles, candidates, opts.ParallelTitle)
		result.TitleFailed = append(result.TitleFailed, titleFailed...)
	}

	// 7. 逐品流式处理
	var exported []feishu.Record
	for _, p := range candidates {
		select {
		case <-ctx.Done():
			_ = resume.Flush()
			return result, ctx.Err()
		default:
		}

		elapsedStart := time.Now()
		fields, ok := t.processOne(ctx, p, snapshot, preTitles, opts, result)
		elapsed := time.Since(elapsedStart)
		if elapsed > opts.Timeout {
			log.Printf("[Update] %s 超出单品软超时 (%.1fs > %.0fs)", p.ProductID, elapsed.Seconds(), opts.Timeout.Seconds())
		}

		if ok {
			fmt.Printf("✅ %s (%d ms)\n", p.ProductID, elapsed.Milliseconds())
		} else {
			fmt.Printf("❌ %s (%d ms)\n", p.ProductID, elapsed.Milliseconds())
		}
		if fields != nil && opts.ExportPath != "" {
			exported = append(exported, feishu.Record{Fields: fields})
		}

		resume.Append(p.ProductID)
		if resume.Count()%opts.SaveInterval == 0 {
			if err := resume.Flush(); err != nil {
				log.Printf("[Update] 进度落盘失败: %v", err)
			}
		}
	}

	if err := resume.Flush(); err != nil {
		log.Printf("[Update] 进度落盘失败: %v", err)
	}

	if opts.ExportPath != "" {
		if err := service.ExportXLSX(opts.ExportPath, exported); err != nil {
			log.Printf("[Update] 导出失败: %v", err)
		}
	}

	printSummary(result)
	return result, nil
}

// ==================== 对账与补建 ====================

// reconcile 先按旧商品ID和归一化链接软匹配，剩余缺失者补建最小记录
// 补建前用 existing_ids 查重，保证重复运行下同一商品至多建一次
func (t *UpdateTask) reconcile(ctx context.Context, products []*model.Product, snapshot *feishu.TableSnapshot, dryRun bool) (*feishu.TableSnapshot, error) {
	var missing []*model.Product
	for _, p := range products {
		if _, ok := snapshot.ByID[p.ProductID]; ok {
			continue
		}
		// 旧ID在远端仍占着记录
		if p.LegacyProductID != "" {
			if rec, ok := snapshot.ByID[p.LegacyProductID]; ok {
				snapshot.ByID[p.ProductID] = rec
				log.Printf("[Update] %s 经旧ID %s 匹配到记录 %s", p.ProductID, p.LegacyProductID, rec.RecordID)
				continue
			}
		}
		// 同一链接换了商品ID
		if rec, ok := snapshot.ByURL[utils.NormalizeURL(p.DetailURL)]; ok {
			snapshot.ByID[p.ProductID] = rec
			log.Printf("[Update] %s 经链接匹配到记录 %s", p.ProductID, rec.RecordID)
			continue
		}
		missing = append(missing, p)
	}
	if len(missing) == 0 {
		return snapshot, nil
	}

	var creates []feishu.Record
	for _, p := range missing {
		if _, ok := snapshot.ExistingIDs[p.ProductID]; ok {
			continue
		}
		creates = append(creates, feishu.Record{Fields: map[string]any{
			model.FieldProductID: p.ProductID,
			model.FieldDetailURL: p.DetailURL,
			model.FieldBrand:     normalize.BrandShortName(p.Brand),
		}})
	}
	if len(creates) == 0 || dryRun {
		return snapshot, nil
	}

	batch, err := t.Client.BatchCreate(ctx, creates)
	if err != nil {
		return nil, fmt.Errorf("补建记录失败: %w", err)
	}
	log.Printf("[Update] 补建 %d 条记录 (失败批次 %d)", batch.SuccessCount, batch.FailedBatches)
	for _, rec := range creates {
		if id := feishu.FieldText(rec.Fields[model.FieldProductID]); id != "" {
			snapshot.ExistingIDs[id] = struct{}{}
		}
	}

	// 拿到服务端分配的 record_id
	refreshed, err := t.Client.GetRecords(ctx)
	if err != nil {
		return nil, err
	}
	return refreshed, nil
}

// ==================== 候选选择 ====================

func targetFields(opts UpdateOptions) []string {
	switch {
	case opts.TitleOnly:
		return []string{model.FieldTitle}
	case opts.CategoryOnly:
		return []string{model.FieldClothing}
	default:
		return model.AllFields
	}
}

// selectCandidates 强制更新全收，否则只收远端目标字段有空缺的商品
func selectCandidates(products []*model.Product, snapshot *feishu.TableSnapshot, targets []string, force bool) []*model.Product {
	var out []*model.Product
	for _, p := range products {
		if force {
			out = append(out, p)
			continue
		}
		remote, ok := snapshot.ByID[p.ProductID]
		if !ok {
			out = append(out, p)
			continue
		}
		for _, field := range targets {
			if feishu.FieldText(remote.Fields[field]) == "" {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// ==================== 单品处理 ====================

// processOne 装配、比对、提交一个商品
// 返回装配出的字段（导出用）和是否成功
func (t *UpdateTask) processOne(ctx context.Context, p *model.Product, snapshot *feishu.TableSnapshot, preTitles map[string]string, opts UpdateOptions, result *UpdateResult) (map[string]any, bool) {
	// 7b. 规格缺失时补抓详情，失败降级继续
	if t.Fetcher != nil && t.Fetcher.Enabled() && service.NeedsDetail(p) && !opts.TitleOnly && !opts.CategoryOnly {
		if err := t.Fetcher.Fetch(ctx, p); err != nil {
			log.Printf("[Update] %s 详情抓取降级: %v", p.ProductID, err)
		}
	}

	// 7c. 字段装配
	var fields map[string]any
	if opts.CategoryOnly {
		fields = map[string]any{
			model.FieldClothing: normalize.MapToTaobaoCategory(p, normalize.DetermineClothingType(p)),
		}
	} else {
		assembled, err := t.Assembler.Assemble(ctx, p, service.AssembleOptions{
			PreGeneratedTitle: preTitles[p.ProductID],
			TitleOnly:         opts.TitleOnly,
		})
		if err != nil {
			result.AssemblyFailed = append(result.AssemblyFailed, p.ProductID)
			return nil, false
		}
		if assembled.TitleFromTemplate {
			result.TitleFailed = append(result.TitleFailed, p.ProductID)
		}
		fields = assembled.Fields
	}

	remote, hasRemote := snapshot.ByID[p.ProductID]

	// 7d. 归一化比对，无变化跳过
	update := make(map[string]any, len(fields))
	hasNewValue := false
	for key, val := range fields {
		if !opts.ForceUpdate && hasRemote && feishu.FieldEqual(val, remote.Fields[key]) {
			continue
		}
		update[key] = val
		if feishu.FieldText(val) != "" {
			hasNewValue = true
		}
	}
	if len(update) == 0 || (!opts.ForceUpdate && !hasNewValue) {
		result.SkippedCount++
		return fields, true
	}

	// 7e. 单品提交
	if opts.DryRun {
		result.SuccessCount++
		return fields, true
	}
	if !hasRemote || remote.RecordID == "" {
		log.Printf("[Update] %s 远端无记录，跳过写入", p.ProductID)
		result.FeishuWriteFailed = append(result.FeishuWriteFailed, p.ProductID)
		return fields, false
	}

	batch, err := t.Client.BatchUpdate(ctx, []feishu.Record{{RecordID: remote.RecordID, Fields: update}})
	if err != nil || batch.FailedBatches > 0 {
		if err != nil {
			log.Printf("[Update] %s 写入失败: %v", p.ProductID, err)
		}
		result.FeishuWriteFailed = append(result.FeishuWriteFailed, p.ProductID)
		if batch != nil {
			result.TotalBatches += batch.TotalBatches
			result.FailedBatches += batch.FailedBatches
		}
		return fields, false
	}
	result.TotalBatches += batch.TotalBatches
	result.SuccessCount += 1
	return fields, true
}

// ==================== 汇总 ====================

func printSummary(result *UpdateResult) {
	fmt.Println("==================== 运行汇总 ====================")
	fmt.Printf("运行ID:     %s\n", result.RunID)
	fmt.Printf("候选商品:   %d\n", result.CandidatesCount)
	fmt.Printf("写入成功:   %d\n", result.SuccessCount)
	fmt.Printf("跳过:       %d\n", result.SkippedCount)
	fmt.Printf("批次:       %d 失败 %d\n", result.TotalBatches, result.FailedBatches)
	if len(result.TitleFailed) > 0 {
		fmt.Printf("标题兜底:   %v\n", result.TitleFailed)
	}
	if len(result.AssemblyFailed) > 0 {
		fmt.Printf("装配失败:   %v\n", result.AssemblyFailed)
	}
	if len(result.FeishuWriteFailed) > 0 {
		fmt.Printf("写入失败:   %v\n", result.FeishuWriteFailed)
	}
	fmt.Printf("进度文件:   %s\n", result.ResumePath)
}
