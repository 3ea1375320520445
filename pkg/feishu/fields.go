package feishu

import (
	"fmt"
	"strings"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/utils"
)

// 多维表格字段值的读取形态不唯一: 文本字段可能返回 string，
// 也可能返回 [{text, option_id}] 片段数组，链接字段返回 {link, text}。
// 写入前的 diff 比较和索引建立都先经过这里归一化。

// FieldText 把任意形态的字段值折叠成纯文本
func FieldText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case SelectOption:
		return strings.TrimSpace(val.Text)
	case map[string]any:
		if text, ok := val["text"].(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		if link, ok := val["link"].(string); ok {
			return strings.TrimSpace(link)
		}
		return ""
	// 列表值统一按换行拼接: 多选字段 ["藏青色","黑色"] 与本地
	// 装配出的 "藏青色\n黑色" 归一化后必须相等，否则 diff 永不跳过
	case []SelectOption:
		parts := make([]string, 0, len(val))
		for _, opt := range val {
			if text := strings.TrimSpace(opt.Text); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if text := FieldText(item); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// NormalizeRecordURL 链接字段归一化后作为 by_url 索引键
func NormalizeRecordURL(v any) string {
	return utils.NormalizeURL(FieldText(v))
}

// FieldEqual 写入值与远端值在归一化后是否一致（无变化的更新直接跳过）
func FieldEqual(local, remote any) bool {
	return FieldText(local) == FieldText(remote)
}
