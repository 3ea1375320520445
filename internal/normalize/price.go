package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/utils"
)

var yenPattern = regexp.MustCompile(`￥?([0-9,]+)`)

// ExtractYen 从原始价格串提取日元整数金额，失败返回 0,false
// "￥19,800 (税込)" -> 19800
func ExtractYen(raw string) (int64, bool) {
	folded := utils.FoldWidth(raw)
	// 全角折叠后 ￥ 可能变成 ¥
	folded = strings.ReplaceAll(folded, "¥", "￥")

	m := yenPattern.FindStringSubmatch(folded)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// YenToCNY 日元 -> 人民币定价
// final = round((yen × 0.055 + 250) / 10) × 10，取整到最近的 10 元
// （￥19,800 -> 1340 的线上对账样本固定了取整方向）
func YenToCNY(yen int64) int64 {
	return int64(math.Round((float64(yen)*0.055+250)/10)) * 10
}

// ConvertPrice 原始价格串 -> 人民币价格串，无法解析返回空串
func ConvertPrice(raw string) string {
	yen, ok := ExtractYen(raw)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d", YenToCNY(yen))
}
