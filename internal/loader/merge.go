package loader

import (
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
)

// ApplyDetail 把抓取器输出并入已有商品: 空字段补齐，已有值不覆盖
// 整个输出保留在 Extra["_detail_data"] 供字段装配取用
func ApplyDetail(p *model.Product, entry map[string]any) {
	if entry == nil {
		return
	}
	defer p.SetDetailData(entry)

	parsed, err := parseDetailedEntry(p.ProductID, entry)
	if err != nil {
		return
	}

	if p.ProductName == "" {
		p.ProductName = parsed.ProductName
	}
	if p.Description == "" {
		p.Description = parsed.Description
	}
	if p.Brand == "" {
		p.Brand = parsed.Brand
	}
	if p.Price == "" {
		p.Price = parsed.Price
	}
	if p.DetailURL == "" {
		p.DetailURL = parsed.DetailURL
	}
	if len(p.Colors) == 0 {
		p.Colors = parsed.Colors
	}
	if len(p.Sizes) == 0 {
		p.Sizes = parsed.Sizes
	}
	if len(p.Variants) == 0 {
		p.Variants = parsed.Variants
	}

	if p.Images.Main == "" {
		p.Images.Main = parsed.Images.Main
	}
	p.Images.Gallery = appendMissing(p.Images.Gallery, parsed.Images.Gallery)
	p.Images.OSS = appendMissing(p.Images.OSS, parsed.Images.OSS)
	if len(parsed.Images.PerColor) > 0 {
		if p.Images.PerColor == nil {
			p.Images.PerColor = make(map[string][]string, len(parsed.Images.PerColor))
		}
		for color, urls := range parsed.Images.PerColor {
			p.Images.PerColor[color] = appendMissing(p.Images.PerColor[color], urls)
		}
	}
	if p.MainImage == "" {
		p.MainImage = parsed.MainImage
	}

	if p.SizeChart.IsEmpty() {
		p.SizeChart = parsed.SizeChart
	}
}

func appendMissing(dst, src []string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, s := range dst {
		seen[s] = struct{}{}
	}
	for _, s := range src {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		dst = append(dst, s)
	}
	return dst
}
