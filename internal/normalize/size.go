package normalize

import (
	"strings"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/utils"
)

// ==================== 尺码映射表 ====================

// 均码类特殊尺码
var specialSizeMap = map[string]string{
	"FREE":    "均码",
	"ONESIZE": "均码",
	"OS":      "均码",
	"F":       "均码",
	"フリー":     "均码",
	"フリーサイズ":  "均码",
}

// 女装数字码（日本号数）
var womenNumericSizeMap = map[string]string{
	"7":  "S",
	"9":  "M",
	"11": "L",
	"13": "XL",
	"15": "XXL",
	"17": "XXXL",
}

// 字母码 JP -> CN
// 3L 的去向由线上对账样本固定为 XXXL
var letterSizeMap = map[string]string{
	"XS": "XS",
	"S":  "S",
	"M":  "M",
	"L":  "L",
	"LL": "XL",
	"2L": "XXL",
	"3L": "XXXL",
	"4L": "XXXL",
	"5L": "XXXXL",
}

// 日本鞋码 -> 中国鞋码（半码递增）
var shoeSizeMap = map[string]string{
	"23.0": "36",
	"23.5": "37",
	"24.0": "38",
	"24.5": "39",
	"25.0": "40",
	"25.5": "41",
	"26.0": "42",
	"26.5": "43",
	"27.0": "44",
	"27.5": "45",
	"28.0": "46",
}

// ==================== 转换 ====================

// NormalizeSize 单个尺码标准化
// 查表顺序: 均码 -> 女装号数(仅女) -> 字母码 -> 鞋码 -> 原样返回
func NormalizeSize(size, gender string) string {
	token := strings.ToUpper(utils.FoldWidth(strings.TrimSpace(size)))
	if token == "" {
		return ""
	}

	if cn, ok := specialSizeMap[token]; ok {
		return cn
	}
	if gender == GenderFemale {
		if cn, ok := womenNumericSizeMap[token]; ok {
			return cn
		}
	}
	if cn, ok := letterSizeMap[token]; ok {
		return cn
	}
	if cn, ok := shoeSizeMap[token]; ok {
		return cn
	}
	return strings.TrimSpace(size)
}

// BuildSizeMultiline 尺码列表 -> 多行文本
// 保持首次出现顺序，映射后去重
func BuildSizeMultiline(sizes []string, gender string) string {
	lines := make([]string, 0, len(sizes))
	seen := make(map[string]struct{})
	for _, s := range sizes {
		cn := NormalizeSize(s, gender)
		if cn == "" {
			continue
		}
		if _, ok := seen[cn]; ok {
			continue
		}
		seen[cn] = struct{}{}
		lines = append(lines, cn)
	}
	return strings.Join(lines, "\n")
}
