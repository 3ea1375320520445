package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/cache"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/utils"
)

// ErrTranslationFailed GLM 返回空译文，调用方退回原文
var ErrTranslationFailed = errors.New("翻译失败")

// TranslateService 商品描述翻译，译文按内容哈希落盘缓存
type TranslateService struct {
	glm   *GLMService
	cache *cache.TranslationCache
}

// NewTranslateService 创建翻译服务
func NewTranslateService(glm *GLMService, c *cache.TranslationCache) *TranslateService {
	return &TranslateService{glm: glm, cache: c}
}

// Translate 翻译商品描述
// 缓存命中直接返回，未命中调 GLM 并写入缓存
func (s *TranslateService) Translate(ctx context.Context, p *model.Product) (string, error) {
	source := CleanDescription(p.Description)
	if source == "" {
		return "", nil
	}

	if s.cache != nil {
		if hit, ok := s.cache.Get(p.ProductID, source); ok {
			return hit, nil
		}
	}

	answer, err := s.glm.Chat(ctx, buildTranslatePrompt(source), ChatOptions{
		Temperature: 0.2,
		MaxTokens:   4000,
		CallType:    model.GLMCallTypeTranslate,
		ProductID:   p.ProductID,
	})
	if err != nil {
		log.Printf("[Translate] %s GLM 调用失败: %v", p.ProductID, err)
		return "", ErrTranslationFailed
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrTranslationFailed
	}

	if s.cache != nil {
		if err := s.cache.Set(p.ProductID, source, answer); err != nil {
			log.Printf("[Translate] %s 缓存写入失败: %v", p.ProductID, err)
		}
	}
	return answer, nil
}

// CleanDescription 去 HTML 标签并压缩空白
func CleanDescription(raw string) string {
	return utils.CollapseWhitespace(utils.StripHTML(raw))
}

func buildTranslatePrompt(source string) string {
	var sb strings.Builder
	sb.WriteString("把下面的日文商品描述翻译成面向淘宝买家的中文文案。\n\n")
	sb.WriteString("输出格式（严格遵守）:\n")
	sb.WriteString("【产品描述】一段通顺的中文介绍\n")
	sb.WriteString("【产品亮点】✓ 每行一个卖点\n")
	sb.WriteString("【材质信息】面料成分，没有则写 以实物为准\n\n")
	sb.WriteString(fmt.Sprintf("日文原文:\n%s", source))
	return sb.String()
}
