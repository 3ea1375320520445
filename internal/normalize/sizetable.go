package normalize

import (
	"regexp"
	"strings"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/utils"
)

// ==================== 映射表 ====================

// 尺码表行首标签 JP -> CN（与商品尺码列的换算口径不同，表内标签沿用日版习惯）
var sizeLabelMap = map[string]string{
	"XS":     "XS码",
	"S":      "S码",
	"M":      "M码",
	"L":      "L码",
	"LL":     "XL码",
	"2L":     "XL码",
	"XL":     "XL码",
	"3L":     "2XL码",
	"XXL":    "2XL码",
	"4L":     "3XL码",
	"5L":     "4XL码",
	"F":      "均码",
	"FREE":   "均码",
	"フリー":    "均码",
	"フリーサイズ": "均码",
}

// 量法名 JP -> CN
var measureNameMap = map[string]string{
	"バスト":   "胸围",
	"胸囲":    "胸围",
	"身幅":    "衣宽",
	"着丈":    "衣长",
	"袖丈":    "袖长",
	"裄丈":    "袖长",
	"肩幅":    "肩宽",
	"ウエスト":  "腰围",
	"ヒップ":   "臀围",
	"股下":    "裤长",
	"股上":    "裆深",
	"わたり":   "大腿围",
	"総丈":    "总长",
	"スカート丈": "裙长",
	"パンツ丈":  "裤长",
	"頭囲":    "头围",
}

// 附注关键词 JP -> CN，命中即追加对应中文附注
var noteKeywordMap = []struct {
	keyword string
	note    string
}{
	{"仕上がり", "以上为成品尺寸"},
	{"実寸", "以上为成品尺寸"},
	{"1-2cm", "因面料特性，实际尺寸可能存在1-2cm误差"},
	{"1～2cm", "因面料特性，实际尺寸可能存在1-2cm误差"},
	{"平置き", "尺寸为平铺测量"},
	{"洗濯", "洗涤后可能略有缩水"},
}

// 固定附注，永远追加
var standardNotes = []string{
	"以上为成品尺寸",
	"因面料特性，实际尺寸可能存在1-2cm误差",
}

// 纯元数据行，跳过不输出
var metadataRowKeywords = []string{"商品番号", "ブランド名", "素材", "原産国", "品番"}

// ==================== 公共入口 ====================

// FormatSizeTable 把松散的日文尺码表转成规范的多行中文表示
// 输入优先级: 结构化表 > 文本块（textSource 可能是纯文本也可能是 HTML）
// 每个尺码一行: 【S码】胸围96 | 衣长65 | 袖长60
func FormatSizeTable(textSource string, chart model.SizeChart) string {
	var lines []string
	var noteSource string

	switch {
	case len(chart.Rows) > 0:
		lines = formatStructured(chart.Headers, chart.Rows)
		noteSource = textSource
	case chart.Raw != "":
		lines, noteSource = formatLoose(chart.Raw)
	case textSource != "":
		lines, noteSource = formatLoose(textSource)
	}

	if len(lines) == 0 {
		return ""
	}

	return strings.Join(append(lines, buildNotes(noteSource)...), "\n")
}

// ==================== 文本 / HTML ====================

var measurePattern = regexp.MustCompile(`(バスト|胸囲|身幅|着丈|袖丈|裄丈|肩幅|ウエスト|ヒップ|股下|股上|わたり|総丈|スカート丈|パンツ丈|頭囲)[：:\s]*([0-9]+(?:\.[0-9]+)?)`)

// formatLoose 文本或 HTML 输入，逐行提取
func formatLoose(src string) (lines []string, noteSource string) {
	if strings.Contains(src, "<tr") || strings.Contains(src, "<table") {
		return formatHTML(src), src
	}
	for _, raw := range strings.Split(src, "\n") {
		if line, ok := formatTextLine(raw); ok {
			lines = append(lines, line)
		}
	}
	return lines, src
}

// formatTextLine 单行文本 -> 输出行
// 期待形如 "S: バスト96 着丈65 袖丈60"，行首尺码映射失败则整行跳过
func formatTextLine(raw string) (string, bool) {
	line := utils.CollapseWhitespace(raw)
	if line == "" || isMetadataRow(line) {
		return "", false
	}

	pairs := measurePattern.FindAllStringSubmatch(line, -1)
	if len(pairs) == 0 {
		return "", false
	}

	// 行首到第一个量法名之间的部分视为尺码标签
	head := line[:strings.Index(line, pairs[0][0])]
	label, ok := mapSizeLabel(head)
	if !ok {
		return "", false
	}

	return buildRow(label, pairs), true
}

// formatHTML 提取 <tr> 行，去标签后按 键值对 解析
// 故意不用 DOM 解析库，日文商城的表格 HTML 往往残缺不闭合
func formatHTML(src string) []string {
	var lines []string
	for _, tr := range trPattern.FindAllString(src, -1) {
		cells := cellPattern.FindAllStringSubmatch(tr, -1)
		texts := make([]string, 0, len(cells))
		for _, c := range cells {
			texts = append(texts, utils.StripTags(c[2]))
		}
		rowText := strings.Join(texts, " ")
		if isMetadataRow(rowText) {
			continue
		}
		if line, ok := formatTextLine(rowText); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

var (
	trPattern   = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	cellPattern = regexp.MustCompile(`(?is)<(th|td)[^>]*>(.*?)</(?:th|td)>`)
)

// ==================== 结构化表 ====================

// formatStructured headers + rows 输入
// 首列为尺码，其余列名走量法映射
func formatStructured(headers []string, rows [][]string) []string {
	var lines []string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		label, ok := mapSizeLabel(row[0])
		if !ok {
			continue
		}

		var parts []string
		for i := 1; i < len(row) && i < len(headers); i++ {
			name := translateMeasure(headers[i])
			value := utils.CollapseWhitespace(row[i])
			if name == "" || value == "" {
				continue
			}
			parts = append(parts, name+value)
		}
		if len(parts) == 0 {
			continue
		}
		lines = append(lines, "【"+label+"】"+strings.Join(parts, " | "))
	}
	return lines
}

// ==================== 内部工具 ====================

func buildRow(label string, pairs [][]string) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, measureNameMap[p[1]]+p[2])
	}
	return "【" + label + "】" + strings.Join(parts, " | ")
}

func mapSizeLabel(token string) (string, bool) {
	t := strings.ToUpper(utils.FoldWidth(strings.TrimSpace(token)))
	t = strings.Trim(t, "：:()（）サイズ ")
	if t == "" {
		return "", false
	}
	label, ok := sizeLabelMap[t]
	return label, ok
}

func translateMeasure(header string) string {
	h := utils.CollapseWhitespace(header)
	if cn, ok := measureNameMap[h]; ok {
		return cn
	}
	for jp, cn := range measureNameMap {
		if strings.Contains(h, jp) {
			return cn
		}
	}
	return ""
}

func isMetadataRow(line string) bool {
	for _, kw := range metadataRowKeywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

// buildNotes 固定附注 + 源文本命中的附注，保序去重
func buildNotes(src string) []string {
	notes := make([]string, 0, 4)
	seen := make(map[string]struct{})
	add := func(n string) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		notes = append(notes, n)
	}

	for _, n := range standardNotes {
		add(n)
	}
	for _, kw := range noteKeywordMap {
		if strings.Contains(src, kw.keyword) {
			add(kw.note)
		}
	}
	return notes
}
