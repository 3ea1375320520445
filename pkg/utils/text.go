package utils

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/width"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripHTML 将描述 HTML 提取为纯文本，多余空白折叠为单个空格
// 解析失败时退化为正则去标签，保证永远有输出
func StripHTML(html string) string {
	if html == "" {
		return ""
	}
	text := html
	if strings.Contains(html, "<") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err == nil {
			text = doc.Text()
		} else {
			text = tagPattern.ReplaceAllString(html, " ")
		}
	}
	return CollapseWhitespace(text)
}

// StripTags 纯正则去标签（尺码表 HTML 行内解析用，不走 DOM）
func StripTags(html string) string {
	return CollapseWhitespace(tagPattern.ReplaceAllString(html, " "))
}

// CollapseWhitespace 折叠连续空白并去掉首尾空白
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// FoldWidth 归一化字符宽度: 全角英数折叠为半角（ＬＬ -> LL，１９８００ -> 19800），
// 半角片假名还原为全角。日文站点的尺码/价格经常混用全半角，统一后再查表
func FoldWidth(s string) string {
	return width.Fold.String(s)
}

// ContainsKana 是否包含平假名/片假名码点 (U+3040-309F, U+30A0-30FF)
func ContainsKana(s string) bool {
	for _, r := range s {
		if (r >= 0x3040 && r <= 0x309F) || (r >= 0x30A0 && r <= 0x30FF) {
			return true
		}
	}
	return false
}

// RuneLen 以字符数计长度（标题长度校验按字符数，不按字节）
func RuneLen(s string) int {
	return len([]rune(s))
}
