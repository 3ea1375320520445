package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/config"
)

func newTestGLMService(serverURL string) *GLMService {
	svc := NewGLMService(&config.GLMConfig{
		APIKey:        "test-key",
		TitleModel:    "glm-4.5-air",
		BaseURL:       serverURL,
		MinInterval:   time.Millisecond,
		MaxRetries:    3,
		BackoffFactor: 1.8,
	}, nil)
	svc.backoffUnit = time.Millisecond
	return svc
}

func chatBody(content, reasoning string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{
				"message": map[string]any{
					"content":           content,
					"reasoning_content": reasoning,
				},
				"finish_reason": "stop",
			},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestGLMService_Chat(t *testing.T) {
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatBody("25秋冬迪桑特DESCENTE高尔夫男士保暖外套", "")))
	}))
	defer server.Close()

	svc := newTestGLMService(server.URL)
	answer, err := svc.Chat(context.Background(), "生成标题", ChatOptions{Temperature: 0.3, MaxTokens: 500})
	require.NoError(t, err)
	assert.Equal(t, "25秋冬迪桑特DESCENTE高尔夫男士保暖外套", answer)

	assert.Equal(t, "glm-4.5-air", gotPayload["model"])
	assert.Equal(t, 0.3, gotPayload["temperature"])
	assert.Equal(t, float64(500), gotPayload["max_tokens"])
}

func TestGLMService_Chat_RateLimitRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":"429","message":"Too Many Requests"}}`))
			return
		}
		_, _ = w.Write([]byte(chatBody("重试后成功的标题", "")))
	}))
	defer server.Close()

	svc := newTestGLMService(server.URL)
	answer, err := svc.Chat(context.Background(), "生成标题", ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "重试后成功的标题", answer)
	assert.Equal(t, 3, calls, "应该在两次 429 之后第三次成功")
}

func TestGLMService_Chat_RateLimitExhausted(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := newTestGLMService(server.URL)
	answer, err := svc.Chat(context.Background(), "生成标题", ChatOptions{})
	assert.Error(t, err)
	assert.Empty(t, answer)
	assert.Equal(t, 4, calls, "首次请求加三次重试")
}

func TestGLMService_Chat_ServerErrorNoRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"internal"}}`))
	}))
	defer server.Close()

	svc := newTestGLMService(server.URL)
	answer, err := svc.Chat(context.Background(), "生成标题", ChatOptions{})
	assert.Error(t, err)
	assert.Empty(t, answer)
	assert.Equal(t, 1, calls, "非限流错误不应重试")
}

func TestGLMService_Chat_ReasoningRecovery(t *testing.T) {
	reasoning := "让我分析一下这个商品。品牌是卡拉威，季节25秋冬。 所以最终答案是：25秋冬卡拉威Callaway高尔夫男士舒适保暖外套"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatBody("", reasoning)))
	}))
	defer server.Close()

	svc := newTestGLMService(server.URL)
	answer, err := svc.Chat(context.Background(), "生成标题", ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "25秋冬卡拉威Callaway高尔夫男士舒适保暖外套", answer)
}

func TestGLMService_Chat_EmptyContentNoRecovery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatBody("", "这里只有分析过程，没有任何可用的答案行。")))
	}))
	defer server.Close()

	svc := newTestGLMService(server.URL)
	answer, err := svc.Chat(context.Background(), "生成标题", ChatOptions{})
	assert.Error(t, err)
	assert.Empty(t, answer)
}

func TestExtractFromReasoning(t *testing.T) {
	tests := []struct {
		name      string
		reasoning string
		want      string
	}{
		{
			name:      "所以最终答案前缀",
			reasoning: "让我数一下字数。\n所以最终答案是：25秋冬卡拉威Callaway高尔夫男士舒适保暖外套",
			want:      "25秋冬卡拉威Callaway高尔夫男士舒适保暖外套",
		},
		{
			name:      "序号前缀",
			reasoning: "候选如下：\n1. 25秋冬卡拉威Callaway高尔夫男士保暖防风外套",
			want:      "25秋冬卡拉威Callaway高尔夫男士保暖防风外套",
		},
		{
			name:      "冒号前缀",
			reasoning: "最终标题：25秋冬迪桑特DESCENTE高尔夫女士轻量上衣",
			want:      "25秋冬迪桑特DESCENTE高尔夫女士轻量上衣",
		},
		{
			name:      "取最后一个候选",
			reasoning: "初稿：25秋冬卡拉威Callaway高尔夫男士防风保暖外套\n修改后：26春夏卡拉威Callaway高尔夫女士轻量上衣",
			want:      "26春夏卡拉威Callaway高尔夫女士轻量上衣",
		},
		{
			name:      "剔除占位符",
			reasoning: "答案：25秋冬卡拉威Callaway高尔夫男士[特征]保暖外套",
			want:      "25秋冬卡拉威Callaway高尔夫男士保暖外套",
		},
		{
			name:      "过短的行被跳过",
			reasoning: "高尔夫外套\n这行没有关键词所以也不算数的内容在这里",
			want:      "",
		},
		{
			name:      "空输入",
			reasoning: "",
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromReasoning(tt.reasoning))
		})
	}
}
