package utils

import "strings"

// NormalizeURL 规范化商品链接，作为跨批次对账的主键
// 规则: 去首尾空白 -> http 强制升级为 https -> 去掉末尾 "/"
// 幂等: NormalizeURL(NormalizeURL(u)) == NormalizeURL(u)
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") {
		u = "https://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimRight(u, "/")
}
