package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/utils"
)

// ==================== 数据结构 ====================

// Entry 单条翻译缓存
type Entry struct {
	Translation string `json:"translation"`
	UpdatedAt   string `json:"updatedAt"`
	ProductID   string `json:"productId"`
}

type cacheFile struct {
	Items map[string]Entry `json:"items"`
}

// ==================== 缓存 ====================

// TranslationCache 内容寻址的持久化翻译缓存
// 键为 SHA-256(product_id ‖ "::" ‖ 清洗后原文)，单 JSON 文件存储，
// 每次写入重写整个文件（写入低频、条目数有界，可接受）
type TranslationCache struct {
	path string

	mu    sync.Mutex
	items map[string]Entry
}

// NewTranslationCache 打开或新建缓存文件
// 文件损坏时从空缓存重新开始而不是报错，旧翻译丢了可以重翻
func NewTranslationCache(path string) (*TranslationCache, error) {
	c := &TranslationCache{
		path:  path,
		items: make(map[string]Entry),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取翻译缓存失败: %v", err)
	}

	var f cacheFile
	if err := json.Unmarshal(data, &f); err == nil && f.Items != nil {
		c.items = f.Items
	}
	return c, nil
}

// Get 按 (商品ID, 原文) 查缓存
func (c *TranslationCache) Get(productID, sourceText string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[utils.ContentKey(productID, sourceText)]
	if !ok {
		return "", false
	}
	return entry.Translation, true
}

// Set 写入并立即落盘
func (c *TranslationCache) Set(productID, sourceText, translation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[utils.ContentKey(productID, sourceText)] = Entry{
		Translation: translation,
		UpdatedAt:   time.Now().Format(time.RFC3339),
		ProductID:   productID,
	}
	return c.flushLocked()
}

// Len 条目数
func (c *TranslationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// flushLocked 整文件重写，调用方必须持锁
func (c *TranslationCache) flushLocked() error {
	data, err := json.MarshalIndent(cacheFile{Items: c.items}, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建缓存目录失败: %v", err)
		}
	}
	return os.WriteFile(c.path, data, 0o644)
}
