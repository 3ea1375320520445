package normalize

import (
	"strings"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
)

// 性别取值
const (
	GenderMale   = "男"
	GenderFemale = "女"
	GenderUnisex = "中性"
)

// DetermineGender 判定商品性别
// 优先级: 显式 gender 字段 > URL 路径 > 商品名关键词 > 中性
func DetermineGender(p *model.Product) string {
	switch strings.TrimSpace(p.Gender) {
	case "男", "men", "mens", "male", "メンズ":
		return GenderMale
	case "女", "women", "womens", "ladies", "female", "レディース":
		return GenderFemale
	case "中性", "unisex":
		return GenderUnisex
	}

	u := strings.ToLower(p.DetailURL)
	switch {
	case strings.Contains(u, "/mens/"):
		return GenderMale
	case strings.Contains(u, "/womens/"), strings.Contains(u, "/ladies/"):
		return GenderFemale
	}

	name := strings.ToLower(p.ProductName)
	switch {
	case strings.Contains(name, "womens"), strings.Contains(name, "ladies"),
		strings.Contains(p.ProductName, "レディース"):
		return GenderFemale
	case strings.Contains(name, "mens"), strings.Contains(p.ProductName, "メンズ"):
		return GenderMale
	}

	return GenderUnisex
}
