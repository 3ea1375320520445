package normalize

import (
	"strings"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/utils"
)

// colorNameMap 日文/英文色名 -> 简体中文
// 键统一为大写半角
var colorNameMap = map[string]string{
	// 日文
	"ホワイト":    "白色",
	"オフホワイト":  "米白色",
	"ブラック":    "黑色",
	"ネイビー":    "藏青色",
	"グレー":     "灰色",
	"グレイ":     "灰色",
	"チャコール":   "炭灰色",
	"レッド":     "红色",
	"ワイン":     "酒红色",
	"ボルドー":    "酒红色",
	"ブルー":     "蓝色",
	"ライトブルー":  "浅蓝色",
	"サックス":    "浅蓝色",
	"ターコイズ":   "青绿色",
	"グリーン":    "绿色",
	"カーキ":     "卡其色",
	"オリーブ":    "橄榄绿",
	"ミント":     "薄荷绿",
	"イエロー":    "黄色",
	"マスタード":   "芥末黄",
	"オレンジ":    "橙色",
	"ピンク":     "粉色",
	"パープル":    "紫色",
	"ラベンダー":   "薰衣草紫",
	"ベージュ":    "米色",
	"ブラウン":    "棕色",
	"モカ":      "摩卡色",
	"キャメル":    "驼色",
	"シルバー":    "银色",
	"ゴールド":    "金色",
	"マルチ":     "多色",
	"マルチカラー":  "多色",

	// 英文
	"WHITE":     "白色",
	"OFF WHITE": "米白色",
	"BLACK":     "黑色",
	"NAVY":      "藏青色",
	"GRAY":      "灰色",
	"GREY":      "灰色",
	"CHARCOAL":  "炭灰色",
	"RED":       "红色",
	"WINE":      "酒红色",
	"BLUE":      "蓝色",
	"SAX":       "浅蓝色",
	"GREEN":     "绿色",
	"KHAKI":     "卡其色",
	"OLIVE":     "橄榄绿",
	"MINT":      "薄荷绿",
	"YELLOW":    "黄色",
	"MUSTARD":   "芥末黄",
	"ORANGE":    "橙色",
	"PINK":      "粉色",
	"PURPLE":    "紫色",
	"LAVENDER":  "薰衣草紫",
	"BEIGE":     "米色",
	"BROWN":     "棕色",
	"CAMEL":     "驼色",
	"SILVER":    "银色",
	"GOLD":      "金色",
	"MULTI":     "多色",
}

// TranslateColor 单个色名翻译，查不到原样返回
func TranslateColor(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	key := strings.ToUpper(utils.FoldWidth(trimmed))
	if cn, ok := colorNameMap[key]; ok {
		return cn
	}
	return trimmed
}

// TranslateColors 色名列表翻译: 保序，翻译后去重
func TranslateColors(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{})
	for _, n := range names {
		cn := TranslateColor(n)
		if cn == "" {
			continue
		}
		if _, ok := seen[cn]; ok {
			continue
		}
		seen[cn] = struct{}{}
		out = append(out, cn)
	}
	return out
}
