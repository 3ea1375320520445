package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"gorm.io/datatypes"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/config"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/repository"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/utils"
)

// ==================== 服务 ====================

// GLMService GLM Chat Completion 客户端
// 进程内串行化所有调用并保证相邻调用之间的最小间隔
type GLMService struct {
	Config      *config.GLMConfig
	client      *resty.Client
	callLogRepo repository.GLMCallLogRepository

	mu       sync.Mutex
	lastCall time.Time

	// 退避基准时长，测试中缩短
	backoffUnit time.Duration
}

// ChatOptions 单次调用参数
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
	CallType    string // model.GLMCallTypeTitle / GLMCallTypeTranslate
	ProductID   string
}

// NewGLMService 创建 GLM 客户端
func NewGLMService(cfg *config.GLMConfig, callLogRepo repository.GLMCallLogRepository) *GLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://open.bigmodel.cn/api/paas/v4"
	}
	if cfg.TitleModel == "" {
		cfg.TitleModel = "glm-4.5-air"
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 400 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 1.8
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetTimeout(90 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &GLMService{
		Config:      cfg,
		client:      client,
		callLogRepo: callLogRepo,
		backoffUnit: time.Second,
	}
}

// ==================== 响应结构 ====================

type glmChatResp struct {
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ==================== 调用 ====================

// Chat 单轮对话
// 429 指数退避重试，其余错误不重试、返回空串由调用方决定兜底
func (s *GLMService) Chat(ctx context.Context, prompt string, opts ChatOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	answer, attempts, err := s.doChat(ctx, prompt, opts)
	s.recordLog(ctx, prompt, answer, attempts, time.Since(start), opts, err)
	return answer, err
}

func (s *GLMService) doChat(ctx context.Context, prompt string, opts ChatOptions) (answer string, attempts int, err error) {
	payload := map[string]any{
		"model": s.Config.TitleModel,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
	}

	for attempt := 0; attempt <= s.Config.MaxRetries; attempt++ {
		attempts = attempt + 1

		// 距上次调用完成不足 min_interval 则补足
		if wait := s.Config.MinInterval - time.Since(s.lastCall); wait > 0 {
			select {
			case <-ctx.Done():
				return "", attempts, ctx.Err()
			case <-time.After(wait):
			}
		}

		resp, reqErr := s.client.R().
			SetContext(ctx).
			SetBody(payload).
			Post("/chat/completions")
		s.lastCall = time.Now()

		if reqErr != nil {
			return "", attempts, fmt.Errorf("GLM 请求失败: %v", reqErr)
		}

		body := resp.String()
		if resp.StatusCode() == 429 || strings.Contains(body, "Too Many Requests") {
			if attempt == s.Config.MaxRetries {
				return "", attempts, fmt.Errorf("GLM 限流重试耗尽 [%d]", resp.StatusCode())
			}
			wait := time.Duration(math.Pow(s.Config.BackoffFactor, float64(attempt)) * float64(s.backoffUnit))
			log.Printf("[GLM] 限流，%.1fs 后重试 (第 %d 次)", wait.Seconds(), attempt+1)
			select {
			case <-ctx.Done():
				return "", attempts, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		if resp.StatusCode() != 200 {
			return "", attempts, fmt.Errorf("GLM API 错误 [%d]: %s", resp.StatusCode(), body)
		}

		var chatResp glmChatResp
		if jsonErr := json.Unmarshal(resp.Body(), &chatResp); jsonErr != nil {
			return "", attempts, fmt.Errorf("解析 GLM 响应失败: %v", jsonErr)
		}
		if chatResp.Error != nil {
			return "", attempts, fmt.Errorf("GLM API 错误: %s", chatResp.Error.Message)
		}
		if len(chatResp.Choices) == 0 {
			return "", attempts, fmt.Errorf("GLM 无生成结果")
		}

		msg := chatResp.Choices[0].Message
		content := strings.TrimSpace(msg.Content)
		if content != "" {
			return content, attempts, nil
		}

		// glm-4.5/4.6 偶发只在思考轨迹里给出答案
		if recovered := ExtractFromReasoning(msg.ReasoningContent); recovered != "" {
			log.Printf("[GLM] content 为空，已从 reasoning_content 恢复答案")
			return recovered, attempts, nil
		}
		return "", attempts, fmt.Errorf("GLM 返回空内容")
	}

	return "", attempts, fmt.Errorf("GLM 重试耗尽")
}

// ==================== reasoning 恢复 ====================

var (
	reNumberPrefix = regexp.MustCompile(`^\d+\.\s*`)
	reColonPrefix  = regexp.MustCompile(`^[^：]*：\s*`)
	reSuoyiPrefix  = regexp.MustCompile(`^所以.*?是[:：]\s*`)
	reJiPrefix     = regexp.MustCompile(`^即[:：]\s*`)
	rePlaceholder  = regexp.MustCompile(`\[[^\]]*\]`)
)

// 答案行必须至少包含其中一个词，否则视为分析性文字
var reasoningMarkers = []string{"卡拉威", "Callaway", "高尔夫", "女士", "男士", "外套", "上衣"}

// ExtractFromReasoning 从思考轨迹中恢复最终答案
// 取最后一个长度在 [15,35] 字符且含领域关键词的非分析行
func ExtractFromReasoning(reasoning string) string {
	if strings.TrimSpace(reasoning) == "" {
		return ""
	}

	var answer string
	for _, line := range strings.Split(reasoning, "\n") {
		candidate := cleanReasoningLine(line)
		if candidate == "" {
			continue
		}
		n := utils.RuneLen(candidate)
		if n < 15 || n > 35 {
			continue
		}
		if !containsAny(candidate, reasoningMarkers) {
			continue
		}
		answer = candidate
	}
	return answer
}

func cleanReasoningLine(line string) string {
	s := strings.TrimSpace(line)
	s = reSuoyiPrefix.ReplaceAllString(s, "")
	s = reJiPrefix.ReplaceAllString(s, "")
	s = reNumberPrefix.ReplaceAllString(s, "")
	s = reColonPrefix.ReplaceAllString(s, "")
	s = rePlaceholder.ReplaceAllString(s, "")
	return strings.Trim(s, " \t\"“”「」『』。")
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// ==================== 调用日志 ====================

func (s *GLMService) recordLog(ctx context.Context, prompt, answer string, attempts int, elapsed time.Duration, opts ChatOptions, callErr error) {
	if s.callLogRepo == nil {
		return
	}

	entry := &model.GLMCallLog{
		ProductID:   opts.ProductID,
		CallType:    opts.CallType,
		ModelName:   s.Config.TitleModel,
		PromptChars: utils.RuneLen(prompt),
		OutputChars: utils.RuneLen(answer),
		Attempts:    attempts,
		DurationMs:  elapsed.Milliseconds(),
		Status:      model.GLMCallStatusSuccess,
	}
	if callErr != nil {
		entry.Status = model.GLMCallStatusFailed
		entry.ErrorMsg = callErr.Error()
	}
	if meta, err := json.Marshal(map[string]any{
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
	}); err == nil {
		entry.Meta = datatypes.JSON(meta)
	}

	if err := s.callLogRepo.Create(ctx, entry); err != nil {
		log.Printf("[GLM] 调用日志写入失败: %v", err)
	}
}
