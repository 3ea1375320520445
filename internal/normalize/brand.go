package normalize

import "strings"

// brandAlias 品牌别名 -> 标题用短名
type brandAlias struct {
	keywords []string
	short    string
}

// 高尔夫服饰常见品牌，关键词小写匹配
var brandAliases = []brandAlias{
	{[]string{"callaway", "キャロウェイ", "卡拉威"}, "卡拉威Callaway"},
	{[]string{"descente", "デサント", "迪桑特"}, "迪桑特DESCENTE"},
	{[]string{"le coq", "lecoq", "ルコック", "乐卡克"}, "乐卡克lecoq"},
	{[]string{"munsingwear", "マンシングウェア", "マンシング", "万星威"}, "万星威Munsing"},
	{[]string{"srixon", "スリクソン"}, "史力胜Srixon"},
	{[]string{"titleist", "タイトリスト"}, "泰特利Titleist"},
	{[]string{"taylormade", "テーラーメイド", "泰勒梅"}, "泰勒梅TaylorMade"},
	{[]string{"mizuno", "ミズノ", "美津浓"}, "美津浓Mizuno"},
	{[]string{"footjoy", "フットジョイ"}, "FootJoy鞋服"},
	{[]string{"pearly gates", "パーリーゲイツ"}, "PearlyGates"},
	{[]string{"ping", "ピン"}, "PING高尔夫"},
	{[]string{"bridgestone", "ブリヂストン"}, "普利司通BS"},
}

// 品牌完全未知时的保底标签，标题和品牌列都不允许为空
const BrandFallback = "日系高尔夫"

// BrandShortName 品牌原文 -> 标题用短名
// 未命中别名表时退回原文，原文为空退回保底标签
func BrandShortName(brand string) string {
	raw := strings.TrimSpace(brand)
	lower := strings.ToLower(raw)
	for _, alias := range brandAliases {
		for _, kw := range alias.keywords {
			if kw != "" && (strings.Contains(lower, kw) || strings.Contains(raw, kw)) {
				return alias.short
			}
		}
	}
	if raw != "" {
		return raw
	}
	return BrandFallback
}
