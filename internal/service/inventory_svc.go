package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/normalize"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/feishu"
)

// ==================== 库存同步 ====================

// InventoryService 只重建 颜色/尺码/库存状态 三个字段的精简同步
type InventoryService struct {
	client feishu.BitableClient
}

// NewInventoryService 创建库存同步服务
func NewInventoryService(client feishu.BitableClient) *InventoryService {
	return &InventoryService{client: client}
}

// 库存状态取值
const (
	StockAllOut  = "都缺货"
	StockNoneOut = "不缺货"
)

// InventoryFields 单个商品的库存字段重建结果
type InventoryFields struct {
	Colors string
	Sizes  string
	Status string
}

// BuildInventoryFields 按变体库存重建三个字段
// 颜色/尺码只保留有货值；缺货按颜色聚合成 "{颜色}({尺码1/尺码2}) 没货" 行
func BuildInventoryFields(item model.InventoryItem, gender string) InventoryFields {
	var (
		inColors  []string
		inSizes   []string
		outColors []string
		outSizes  = make(map[string][]string)
		outCount  int
	)

	for _, v := range item.VariantInventory {
		if v.InStock {
			inColors = append(inColors, v.Color)
			inSizes = append(inSizes, v.Size)
			continue
		}
		outCount++
		if _, ok := outSizes[v.Color]; !ok {
			outColors = append(outColors, v.Color)
		}
		outSizes[v.Color] = append(outSizes[v.Color], v.Size)
	}

	fields := InventoryFields{
		Colors: strings.Join(normalize.TranslateColors(inColors), "\n"),
		Sizes:  normalize.BuildSizeMultiline(inSizes, gender),
	}

	switch {
	case len(item.VariantInventory) == 0:
		fields.Status = ""
	case outCount == 0:
		fields.Status = StockNoneOut
	case outCount == len(item.VariantInventory):
		fields.Status = StockAllOut
	default:
		lines := make([]string, 0, len(outColors))
		for _, color := range outColors {
			lines = append(lines, fmt.Sprintf("%s(%s) 没货",
				normalize.TranslateColor(color), strings.Join(outSizes[color], "/")))
		}
		fields.Status = strings.Join(lines, "\n")
	}
	return fields
}

// InventoryResult 一次库存同步汇总
type InventoryResult struct {
	Matched int
	Missing []string
	Batch   *feishu.BatchResult
}

// Sync 重建字段并以单次 batch_update 提交
// 远端没有对应记录的商品记入 Missing，不算失败
func (s *InventoryService) Sync(ctx context.Context, items []model.InventoryItem) (*InventoryResult, error) {
	snapshot, err := s.client.GetRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取远端快照失败: %w", err)
	}

	result := &InventoryResult{}
	records := make([]feishu.Record, 0, len(items))
	for _, item := range items {
		remote, ok := snapshot.ByID[item.ProductID]
		if !ok {
			result.Missing = append(result.Missing, item.ProductID)
			log.Printf("[Inventory] %s 远端无记录，跳过", item.ProductID)
			continue
		}
		result.Matched++

		gender := feishu.FieldText(remote.Fields[model.FieldGender])
		fields := BuildInventoryFields(item, gender)
		records = append(records, feishu.Record{
			RecordID: remote.RecordID,
			Fields: map[string]any{
				model.FieldColors:      fields.Colors,
				model.FieldSizes:       fields.Sizes,
				model.FieldStockStatus: fields.Status,
			},
		})
	}

	batch, err := s.client.BatchUpdate(ctx, records)
	if err != nil {
		return result, err
	}
	result.Batch = batch
	log.Printf("[Inventory] 同步完成: 匹配 %d 缺失 %d 成功 %d", result.Matched, len(result.Missing), batch.SuccessCount)
	return result, nil
}
