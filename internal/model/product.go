package model

import (
	"encoding/json"
)

// ==================== 飞书字段名 ====================

// 多维表格的 13 个目标字段
const (
	FieldProductID   = "商品ID"
	FieldDetailURL   = "商品链接"
	FieldTitle       = "商品标题"
	FieldBrand       = "品牌名"
	FieldPrice       = "价格"
	FieldGender      = "性别"
	FieldClothing    = "衣服分类"
	FieldColors      = "颜色"
	FieldSizes       = "尺码"
	FieldImageURLs   = "图片URL"
	FieldImageCount  = "图片数量"
	FieldDescription = "详情页文字"
	FieldSizeChart   = "尺码表"

	// 库存同步专用
	FieldStockStatus = "库存状态"
)

// AllFields 全字段投影顺序（读表与导出共用）
var AllFields = []string{
	FieldProductID, FieldDetailURL, FieldTitle, FieldBrand, FieldPrice,
	FieldGender, FieldClothing, FieldColors, FieldSizes,
	FieldImageURLs, FieldImageCount, FieldDescription, FieldSizeChart,
}

// ==================== 商品 ====================

// ColorEntry 颜色条目，来源可能是纯字符串或 {name, code} 对象
type ColorEntry struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Variant 颜色 × 尺码的单个组合
type Variant struct {
	Color    string  `json:"color"`
	Size     string  `json:"size"`
	InStock  bool    `json:"inStock"`
	PriceJPY float64 `json:"priceJPY,omitempty"`
}

// ImageSet 按角色分组的图片
type ImageSet struct {
	Main     string              `json:"main,omitempty"`
	Gallery  []string            `json:"gallery,omitempty"`
	PerColor map[string][]string `json:"perColor,omitempty"`
	OSS      []string            `json:"oss,omitempty"`
}

// SizeChart 尺码表，三种形态之一: 原始文本 / 原始 HTML / 结构化表
type SizeChart struct {
	Raw     string     `json:"raw,omitempty"`
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
}

// IsEmpty 三种形态都不存在
func (c SizeChart) IsEmpty() bool {
	return c.Raw == "" && len(c.Headers) == 0 && len(c.Rows) == 0
}

// Product 加载器产出的统一内存商品记录
type Product struct {
	// 身份
	ProductID       string `json:"productId"`
	LegacyProductID string `json:"legacyProductId,omitempty"`
	BrandProductID  string `json:"brandProductId,omitempty"`
	DetailURL       string `json:"detailUrl"`

	// 描述
	ProductName string `json:"productName"`
	Description string `json:"description"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Gender      string `json:"gender,omitempty"`

	// 价格
	Price         string `json:"price"`
	OriginalPrice string `json:"originalPrice,omitempty"`
	Currency      string `json:"currency"`

	// 规格（保持输入顺序）
	Colors   []ColorEntry `json:"colors,omitempty"`
	Sizes    []string     `json:"sizes,omitempty"`
	Variants []Variant    `json:"variants,omitempty"`

	// 图片
	Images    ImageSet `json:"images"`
	MainImage string   `json:"mainImage,omitempty"`

	// 结构化附加数据
	SizeChart SizeChart      `json:"sizeChart,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// DetailData 取出抓取器完整输出 (_detail_data)，不存在时返回 nil
func (p *Product) DetailData() map[string]any {
	if p.Extra == nil {
		return nil
	}
	if d, ok := p.Extra["_detail_data"].(map[string]any); ok {
		return d
	}
	return nil
}

// SetDetailData 合并抓取器输出到 Extra
func (p *Product) SetDetailData(d map[string]any) {
	if p.Extra == nil {
		p.Extra = make(map[string]any)
	}
	p.Extra["_detail_data"] = d
}

// ColorNames 颜色名列表（保序）
func (p *Product) ColorNames() []string {
	names := make([]string, 0, len(p.Colors))
	for _, c := range p.Colors {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names
}

// AllImages 汇总图片: main -> gallery -> perColor -> oss，保序去重
func (p *Product) AllImages() []string {
	out := make([]string, 0, 8)
	seen := make(map[string]struct{})
	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	add(p.Images.Main)
	add(p.MainImage)
	for _, u := range p.Images.Gallery {
		add(u)
	}
	for _, urls := range p.Images.PerColor {
		for _, u := range urls {
			add(u)
		}
	}
	for _, u := range p.Images.OSS {
		add(u)
	}
	return out
}

// ==================== 远端记录 ====================

// BitableRecord 飞书多维表格中的一行
type BitableRecord struct {
	RecordID string         `json:"record_id"`
	Fields   map[string]any `json:"fields"`
}

// ==================== 断点续跑 ====================

// ResumeState 每个输入文件一份的续跑进度
type ResumeState struct {
	Timestamp      string   `json:"timestamp"`
	ProcessedCount int      `json:"processed_count"`
	ProcessedIDs   []string `json:"processed_ids"`
}

// Contains 商品是否已处理过
func (s *ResumeState) Contains(productID string) bool {
	for _, id := range s.ProcessedIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// ==================== 库存同步输入 ====================

// InventoryItem 库存同步的单个商品输入
type InventoryItem struct {
	ProductID        string    `json:"productId"`
	VariantInventory []Variant `json:"variantInventory"`
}

// DecodeInventoryFile 解析库存同步输入，兼容裸数组和 {items:[...]} 两种包装
func DecodeInventoryFile(data []byte) ([]InventoryItem, error) {
	var items []InventoryItem
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		Items []InventoryItem `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Items, nil
}
