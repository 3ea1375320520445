package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentKey 内容寻址键: SHA-256(productID ‖ "::" ‖ text)
// 翻译缓存用它保证同一商品同一原文只翻译一次
func ContentKey(productID, text string) string {
	sum := sha256.Sum256([]byte(productID + "::" + text))
	return hex.EncodeToString(sum[:])
}
