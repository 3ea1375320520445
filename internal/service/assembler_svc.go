package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/normalize"
)

// ==================== 服务 ====================

// AssemblerService 把商品装配成多维表格的 13 个目标字段
type AssemblerService struct {
	titles     *TitleService
	translator *TranslateService
}

// NewAssemblerService 创建装配服务
func NewAssemblerService(titles *TitleService, translator *TranslateService) *AssemblerService {
	return &AssemblerService{titles: titles, translator: translator}
}

// AssembleOptions 单个商品的装配参数
type AssembleOptions struct {
	// 预生成标题（并行标题池的产物），非空时跳过标题生成
	PreGeneratedTitle string
	// 只装配商品标题一个字段
	TitleOnly bool
}

// AssembledRecord 装配结果及降级标记
type AssembledRecord struct {
	Fields map[string]any
	// 标题走了模板兜底
	TitleFromTemplate bool
	// 译文失败，详情页文字退回了原文
	TranslationFellBack bool
}

// Assemble 装配 13 个目标字段
// 可能回写 Product.Price（从变体中发现的价格），保证重复装配结果一致
func (s *AssemblerService) Assemble(ctx context.Context, p *model.Product, opts AssembleOptions) (*AssembledRecord, error) {
	result := &AssembledRecord{Fields: make(map[string]any, len(model.AllFields))}

	title := opts.PreGeneratedTitle
	if title == "" {
		generated, err := s.titles.Generate(ctx, p)
		if err != nil {
			result.TitleFromTemplate = true
		}
		title = generated
	}
	result.Fields[model.FieldTitle] = title
	if opts.TitleOnly {
		return result, nil
	}

	detail := p.DetailData()
	gender := normalize.DetermineGender(p)
	clothingType := normalize.DetermineClothingType(p)

	result.Fields[model.FieldProductID] = p.ProductID
	result.Fields[model.FieldDetailURL] = p.DetailURL
	result.Fields[model.FieldPrice] = s.resolvePrice(p, detail)
	result.Fields[model.FieldGender] = gender
	result.Fields[model.FieldClothing] = normalize.MapToTaobaoCategory(p, clothingType)
	result.Fields[model.FieldBrand] = normalize.BrandShortName(p.Brand)
	result.Fields[model.FieldColors] = assembleColors(p, detail)

	sizes := detailSizes(detail)
	if len(sizes) == 0 {
		sizes = p.Sizes
	}
	result.Fields[model.FieldSizes] = normalize.BuildSizeMultiline(applyNumberSizes(sizes, gender), gender)

	imageURLs := assembleImages(p, detail)
	result.Fields[model.FieldImageURLs] = imageURLs
	result.Fields[model.FieldImageCount] = imageLineCount(imageURLs)

	result.Fields[model.FieldSizeChart] = normalize.FormatSizeTable(detailString(detail, "sizeSectionText"), p.SizeChart)

	description, fellBack := s.assembleDescription(ctx, p)
	result.Fields[model.FieldDescription] = description
	result.TranslationFellBack = fellBack

	return result, nil
}

// ==================== 价格 ====================

// resolvePrice 价格发现顺序: Product.Price -> 详情 product 子对象 -> 变体价格
// 发现的价格回写 Product.Price
func (s *AssemblerService) resolvePrice(p *model.Product, detail map[string]any) string {
	if p.Price != "" {
		if cny := normalize.ConvertPrice(p.Price); cny != "" {
			return cny
		}
	}

	if inner, ok := detail["product"].(map[string]any); ok {
		for _, key := range []string{"price", "priceText", "currentPrice", "originalPrice"} {
			raw := detailString(inner, key)
			if raw == "" {
				continue
			}
			if cny := normalize.ConvertPrice(raw); cny != "" {
				p.Price = raw
				return cny
			}
		}
	}

	for _, v := range p.Variants {
		if v.PriceJPY > 0 {
			raw := fmt.Sprintf("￥%d", int64(v.PriceJPY))
			p.Price = raw
			return normalize.ConvertPrice(raw)
		}
	}
	return ""
}

// ==================== 颜色 / 尺码 ====================

// assembleColors 商品颜色与详情颜色取并集后译名
func assembleColors(p *model.Product, detail map[string]any) string {
	names := p.ColorNames()
	if list, ok := detail["colors"].([]any); ok {
		for _, item := range list {
			switch c := item.(type) {
			case string:
				names = append(names, c)
			case map[string]any:
				if name := detailString(c, "name"); name != "" {
					names = append(names, name)
				} else if name := detailString(c, "colorName"); name != "" {
					names = append(names, name)
				}
			}
		}
	}
	return strings.Join(normalize.TranslateColors(names), "\n")
}

func detailSizes(detail map[string]any) []string {
	list, ok := detail["sizes"].([]any)
	if !ok {
		return nil
	}
	sizes := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			sizes = append(sizes, s)
		}
	}
	return sizes
}

// 数字尺码按性别先行映射，再进尺码归一器
var (
	femaleNumberSizes = map[string]string{"00": "XXS", "0": "XS", "1": "S", "2": "M"}
	maleNumberSizes   = map[string]string{"3": "S", "4": "M", "5": "L", "6": "XL", "7": "XXL"}
)

func applyNumberSizes(sizes []string, gender string) []string {
	var table map[string]string
	switch gender {
	case normalize.GenderFemale:
		table = femaleNumberSizes
	case normalize.GenderMale:
		table = maleNumberSizes
	default:
		return sizes
	}

	out := make([]string, len(sizes))
	for i, size := range sizes {
		if mapped, ok := table[strings.TrimSpace(size)]; ok {
			out[i] = mapped
		} else {
			out[i] = size
		}
	}
	return out
}

// ==================== 图片 ====================

// assembleImages 商品图片与详情变体图片取并集，保序去重
func assembleImages(p *model.Product, detail map[string]any) string {
	urls := p.AllImages()
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		seen[u] = struct{}{}
	}

	appendURL := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	if images, ok := detail["images"].(map[string]any); ok {
		for _, key := range []string{"product", "variants"} {
			if list, ok := images[key].([]any); ok {
				for _, item := range list {
					if u, ok := item.(string); ok {
						appendURL(u)
					}
				}
			}
		}
	}

	if len(urls) == 0 && p.MainImage != "" {
		urls = append(urls, p.MainImage)
	}
	return strings.Join(urls, "\n")
}

func imageLineCount(imageURLs string) int {
	if imageURLs == "" {
		return 0
	}
	return len(strings.Split(imageURLs, "\n"))
}

// ==================== 详情页文字 ====================

// assembleDescription 译文优先，翻译失败退回清洗后的原文
func (s *AssemblerService) assembleDescription(ctx context.Context, p *model.Product) (string, bool) {
	translated, err := s.translator.Translate(ctx, p)
	if err == nil {
		return translated, false
	}
	if !errors.Is(err, ErrTranslationFailed) {
		log.Printf("[Assembler] %s 翻译异常: %v", p.ProductID, err)
	}
	return CleanDescription(p.Description), true
}

func detailString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}
