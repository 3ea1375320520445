package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
)

// ErrUnsupportedFormat 输入 JSON 不属于任何已知形态
var ErrUnsupportedFormat = errors.New("无法识别的输入格式")

// Format 输入形态
type Format string

const (
	FormatDetailed   Format = "detailed"
	FormatSummarized Format = "summarized"
	FormatLinkOnly   Format = "link_only"
)

// ==================== 工厂入口 ====================

// Load 识别输入形态并解析为有序的商品列表
// 识别优先级: Detailed -> Summarized -> LinkOnly
func Load(data []byte) ([]model.Product, Format, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	format, err := detect(root)
	if err != nil {
		return nil, "", err
	}

	var products []model.Product
	switch format {
	case FormatDetailed:
		products, err = loadDetailed(root)
	case FormatSummarized:
		products, err = loadSummarized(root)
	case FormatLinkOnly:
		products, err = loadLinkOnly(root)
	}
	if err != nil {
		return nil, format, err
	}
	return products, format, nil
}

// detect 形态探测
func detect(root map[string]json.RawMessage) (Format, error) {
	// 抓取器单品输出: product + scrapeInfo，variants 可缺省
	if hasKey(root, "product") && hasKey(root, "scrapeInfo") {
		return FormatDetailed, nil
	}

	if raw, ok := root["products"]; ok {
		first := firstEntry(raw)
		if first == nil {
			return "", ErrUnsupportedFormat
		}
		if detailFieldCount(first) >= 2 {
			return FormatDetailed, nil
		}
		if hasAnyKey(first, "price", "currentPrice", "priceText", "salePrice", "brand", "brandName") {
			return FormatSummarized, nil
		}
		return FormatLinkOnly, nil
	}

	if hasKey(root, "links") {
		return FormatLinkOnly, nil
	}

	return "", ErrUnsupportedFormat
}

// detailFieldCount 详情字段计数，≥2 即认定为 Detailed
func detailFieldCount(entry map[string]any) int {
	n := 0
	for _, key := range []string{"description", "brand", "category", "variants"} {
		if v, ok := entry[key]; ok && !isEmptyValue(v) {
			n++
		}
	}
	return n
}

// ==================== Detailed ====================

// loadDetailed 完整详情形态
// 单品三件套或 products 映射，整个原始条目保留在 Extra["_detail_data"]
func loadDetailed(root map[string]json.RawMessage) ([]model.Product, error) {
	if hasKey(root, "scrapeInfo") {
		entry := make(map[string]any, len(root))
		for k, raw := range root {
			var v any
			if err := json.Unmarshal(raw, &v); err == nil {
				entry[k] = v
			}
		}
		p, err := parseDetailedEntry("", entry)
		if err != nil {
			return nil, err
		}
		return []model.Product{p}, nil
	}

	keys, entries, err := orderedEntries(root["products"])
	if err != nil {
		return nil, err
	}

	products := make([]model.Product, 0, len(keys))
	for i, key := range keys {
		p, err := parseDetailedEntry(key, entries[i])
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func parseDetailedEntry(fallbackID string, entry map[string]any) (model.Product, error) {
	p := baseProduct(fallbackID, entry)

	// 抓取器三件套时核心字段藏在 product 子对象里
	if inner, ok := entry["product"].(map[string]any); ok {
		if p.ProductID == "" {
			p.ProductID = pickString(inner, "productId", "id")
		}
		if p.ProductName == "" {
			p.ProductName = pickString(inner, "productName", "title", "name")
		}
		if p.Description == "" {
			p.Description = pickString(inner, "description")
		}
		if p.Brand == "" {
			p.Brand = pickString(inner, "brand", "brandName")
		}
		if p.Price == "" {
			p.Price = pickString(inner, "price", "currentPrice", "priceText", "salePrice")
		}
		if p.DetailURL == "" {
			p.DetailURL = pickString(inner, "detailUrl", "url", "link")
		}
	}
	if info, ok := entry["scrapeInfo"].(map[string]any); ok && p.DetailURL == "" {
		p.DetailURL = pickString(info, "url", "detailUrl")
	}

	p.Colors = parseColors(entry["colors"])
	p.Sizes = toStringList(entry["sizes"])
	p.Variants = parseVariants(entry["variants"])
	p.Images = parseImages(entry)
	p.SizeChart = parseSizeChart(entry)
	if p.MainImage == "" {
		p.MainImage = p.Images.Main
	}

	p.SetDetailData(entry)

	if p.ProductID == "" {
		return p, fmt.Errorf("详情条目缺少商品ID (url=%s)", p.DetailURL)
	}
	return p, nil
}

// ==================== Summarized ====================

// loadSummarized 概要形态: 身份 + 价格 + 品牌 + 单主图
func loadSummarized(root map[string]json.RawMessage) ([]model.Product, error) {
	keys, entries, err := orderedEntries(root["products"])
	if err != nil {
		return nil, err
	}

	products := make([]model.Product, 0, len(keys))
	for i, key := range keys {
		p := baseProduct(key, entries[i])
		if p.ProductID == "" {
			return nil, fmt.Errorf("概要条目缺少商品ID (url=%s)", p.DetailURL)
		}
		products = append(products, p)
	}
	return products, nil
}

// ==================== LinkOnly ====================

// loadLinkOnly 仅链接形态: 只有商品ID和链接
func loadLinkOnly(root map[string]json.RawMessage) ([]model.Product, error) {
	raw, ok := root["products"]
	if !ok {
		raw = root["links"]
	}

	keys, entries, err := orderedEntries(raw)
	if err != nil {
		return nil, err
	}

	products := make([]model.Product, 0, len(keys))
	for i, key := range keys {
		entry := entries[i]
		p := model.Product{
			ProductID: firstNonEmpty(pickString(entry, "productId", "id"), key),
			DetailURL: pickString(entry, "detailUrl", "url", "link"),
			Currency:  "JPY",
			Extra:     map[string]any{"_raw": entry},
		}
		if p.ProductID == "" {
			// 链接条目连 ID 都没有时从 URL 尾段推一个
			p.ProductID = idFromURL(p.DetailURL)
		}
		if p.ProductID == "" {
			return nil, fmt.Errorf("链接条目缺少商品ID (url=%s)", p.DetailURL)
		}
		products = append(products, p)
	}
	return products, nil
}

func idFromURL(url string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(url), "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return ""
}

// ==================== 条目通用解析 ====================

// baseProduct 异构键名归一: productId/id, productName/title/name,
// detailUrl/url/link, price/currentPrice/priceText/salePrice, brand/brandName
func baseProduct(fallbackID string, entry map[string]any) model.Product {
	p := model.Product{
		ProductID:       firstNonEmpty(pickString(entry, "productId", "id"), fallbackID),
		LegacyProductID: pickString(entry, "legacyProductId", "oldProductId"),
		BrandProductID:  pickString(entry, "brandProductId", "makerProductId"),
		DetailURL:       pickString(entry, "detailUrl", "url", "link"),
		ProductName:     pickString(entry, "productName", "title", "name"),
		Description:     pickString(entry, "description"),
		Brand:           pickString(entry, "brand", "brandName"),
		Category:        pickString(entry, "category"),
		Gender:          pickString(entry, "gender"),
		Price:           pickString(entry, "price", "currentPrice", "priceText", "salePrice"),
		OriginalPrice:   pickString(entry, "originalPrice"),
		Currency:        firstNonEmpty(pickString(entry, "currency"), "JPY"),
		MainImage:       pickString(entry, "mainImage", "imageUrl", "image"),
		Extra:           map[string]any{"_raw": entry},
	}
	return p
}

func parseColors(v any) []model.ColorEntry {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	colors := make([]model.ColorEntry, 0, len(list))
	for _, item := range list {
		switch c := item.(type) {
		case string:
			if c != "" {
				colors = append(colors, model.ColorEntry{Name: c})
			}
		case map[string]any:
			entry := model.ColorEntry{
				Name: pickString(c, "name", "colorName", "color"),
				Code: pickString(c, "code", "colorCode"),
			}
			if entry.Name != "" || entry.Code != "" {
				colors = append(colors, entry)
			}
		}
	}
	return colors
}

func parseVariants(v any) []model.Variant {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	variants := make([]model.Variant, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		variant := model.Variant{
			Color:   pickString(m, "color", "colorName"),
			Size:    pickString(m, "size"),
			InStock: asBool(m["inStock"], true),
		}
		if f, ok := asFloat(m["priceJPY"]); ok {
			variant.PriceJPY = f
		} else if f, ok := asFloat(m["price"]); ok {
			variant.PriceJPY = f
		}
		variants = append(variants, variant)
	}
	return variants
}

// parseImages 图片来源: images 对象(main/gallery/perColor/product/variants)、
// images 数组或 imageUrls 数组
func parseImages(entry map[string]any) model.ImageSet {
	var set model.ImageSet

	switch img := entry["images"].(type) {
	case map[string]any:
		set.Main = pickString(img, "main")
		set.Gallery = toStringList(img["gallery"])
		if len(set.Gallery) == 0 {
			set.Gallery = toStringList(img["product"])
		}
		set.OSS = toStringList(img["oss"])
		if extra := toStringList(img["variants"]); len(extra) > 0 {
			set.Gallery = append(set.Gallery, extra...)
		}
		if perColor, ok := img["perColor"].(map[string]any); ok {
			set.PerColor = make(map[string][]string, len(perColor))
			for color, urls := range perColor {
				set.PerColor[color] = toStringList(urls)
			}
		}
	case []any:
		set.Gallery = toStringList(img)
	}

	if urls := toStringList(entry["imageUrls"]); len(urls) > 0 {
		set.Gallery = append(set.Gallery, urls...)
	}
	if set.Main == "" {
		set.Main = pickString(entry, "mainImage", "imageUrl", "image")
	}
	return set
}

// parseSizeChart 尺码表三种形态: 原始文本/HTML(sizeSectionText 或字符串 sizeChart)
// 或结构化 {headers, rows}
func parseSizeChart(entry map[string]any) model.SizeChart {
	var chart model.SizeChart

	if text := pickString(entry, "sizeSectionText"); text != "" {
		chart.Raw = text
	}

	switch sc := entry["sizeChart"].(type) {
	case string:
		if chart.Raw == "" {
			chart.Raw = sc
		}
	case map[string]any:
		chart.Headers = toStringList(sc["headers"])
		if rows, ok := sc["rows"].([]any); ok {
			for _, r := range rows {
				chart.Rows = append(chart.Rows, toStringList(r))
			}
		}
	}
	return chart
}

// ==================== 底层工具 ====================

// orderedEntries 解出条目列表并保持文件内的出现顺序
// products 可能是 JSON 对象(键为商品ID)也可能是数组
func orderedEntries(raw json.RawMessage) ([]string, []map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil, ErrUnsupportedFormat
	}

	trimmed := strings.TrimLeft(string(raw), " \t\r\n")
	if strings.HasPrefix(trimmed, "[") {
		var list []map[string]any
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		keys := make([]string, len(list))
		return keys, list, nil
	}

	// JSON 对象: 用 Decoder 按 token 扫描以保留键序
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, ErrUnsupportedFormat
	}

	var keys []string
	var entries []map[string]any
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		key, _ := keyTok.(string)

		var entry map[string]any
		if err := dec.Decode(&entry); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		keys = append(keys, key)
		entries = append(entries, entry)
	}
	return keys, entries, nil
}

// firstEntry 取 products 的第一个条目（形态探测用）
func firstEntry(raw json.RawMessage) map[string]any {
	_, entries, err := orderedEntries(raw)
	if err != nil || len(entries) == 0 {
		return nil
	}
	return entries[0]
}

func hasKey(root map[string]json.RawMessage, key string) bool {
	raw, ok := root[key]
	return ok && len(raw) > 0 && string(raw) != "null"
}

func hasAnyKey(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok && !isEmptyValue(v) {
			return true
		}
	}
	return false
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asString(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	}
	return ""
}

func asBool(v any, defaultValue bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return defaultValue
}

func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(val, ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

func toStringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
