package task

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/feishu"
)

// ==================== 令牌保活 ====================

// TokenKeepalive 长时间运行时定期刷新飞书租户令牌
// 令牌有效期 7200 秒，每 40 分钟刷一次留足余量
type TokenKeepalive struct {
	client *feishu.Client
	cron   *cron.Cron
}

// NewTokenKeepalive 创建保活任务
func NewTokenKeepalive(client *feishu.Client) *TokenKeepalive {
	return &TokenKeepalive{
		client: client,
		cron:   cron.New(),
	}
}

// Start 启动定时刷新
func (t *TokenKeepalive) Start() error {
	_, err := t.cron.AddFunc("@every 40m", func() {
		if err := t.client.RefreshToken(context.Background()); err != nil {
			log.Printf("[Token] 定时刷新失败: %v", err)
		}
	})
	if err != nil {
		return err
	}
	t.cron.Start()
	log.Printf("[Token] 令牌保活已启动 (每 40 分钟)")
	return nil
}

// Stop 停止定时刷新
func (t *TokenKeepalive) Stop() {
	t.cron.Stop()
}
