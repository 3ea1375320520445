package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// ==========================================
// 飞书多维表格客户端
// ==========================================

// Config 客户端配置
type Config struct {
	AppID     string
	AppSecret string
	AppToken  string // 多维表格 app_token
	TableID   string

	BaseURL       string
	MaxRetries    int
	BackoffFactor float64
	BatchSize     int
	PageDelay     time.Duration

	// 读取时只投影这些字段，减小响应体
	FieldNames []string
}

// TableSnapshot 全表读取结果，双索引
type TableSnapshot struct {
	// 商品ID -> 记录
	ByID map[string]Record
	// normalize(商品链接) -> 记录
	ByURL map[string]Record
	// 已存在的商品ID集合，创建前查重用
	ExistingIDs map[string]struct{}
}

// BatchResult 批量写入汇总
type BatchResult struct {
	SuccessCount  int
	FailedBatches int
	TotalBatches  int
}

// BitableClient 多维表格操作
type BitableClient interface {
	GetRecords(ctx context.Context) (*TableSnapshot, error)
	BatchUpdate(ctx context.Context, records []Record) (*BatchResult, error)
	BatchCreate(ctx context.Context, records []Record) (*BatchResult, error)
}

// Client 飞书开放平台客户端
type Client struct {
	cfg    Config
	client *resty.Client

	tokenMu      sync.Mutex
	token        string
	tokenExpires time.Time

	pageLimiter  *rate.Limiter
	batchLimiter *rate.Limiter

	// 退避基准时长，测试中缩短
	backoffUnit time.Duration
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://open.feishu.cn/open-apis"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 1.8
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 30
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = 200 * time.Millisecond
	}

	return &Client{
		cfg: cfg,
		client: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(60 * time.Second).
			SetHeader("Content-Type", "application/json"),
		pageLimiter:  rate.NewLimiter(rate.Every(cfg.PageDelay), 1),
		batchLimiter: rate.NewLimiter(rate.Every(cfg.PageDelay), 1),
		backoffUnit:  time.Second,
	}
}

// ==================== 令牌 ====================

// 到期前 300 秒即视为失效
const tokenEarlyRefresh = 300 * time.Second

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpires.Add(-tokenEarlyRefresh)) {
		return c.token, nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(TenantTokenReq{AppID: c.cfg.AppID, AppSecret: c.cfg.AppSecret}).
		Post("/auth/v3/tenant_access_token/internal")
	if err != nil {
		return "", fmt.Errorf("获取租户令牌失败: %v", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("获取租户令牌失败 [%d]: %s", resp.StatusCode(), resp.String())
	}
	var tokenResp TenantTokenResp
	if err := json.Unmarshal(resp.Body(), &tokenResp); err != nil {
		return "", fmt.Errorf("解析令牌响应失败: %v", err)
	}
	if tokenResp.Code != 0 || tokenResp.TenantAccessToken == "" {
		return "", fmt.Errorf("获取租户令牌失败 [%d]: %s", tokenResp.Code, tokenResp.Msg)
	}

	c.token = tokenResp.TenantAccessToken
	expire := tokenResp.Expire
	if expire <= 0 {
		expire = 7200
	}
	c.tokenExpires = time.Now().Add(time.Duration(expire) * time.Second)
	log.Printf("[Feishu] 租户令牌已刷新，有效期 %ds", expire)
	return c.token, nil
}

// RefreshToken 主动刷新令牌（定时保活用）
func (c *Client) RefreshToken(ctx context.Context) error {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenMu.Unlock()
	_, err := c.ensureToken(ctx)
	return err
}

// ==================== 全表读取 ====================

func (c *Client) recordsPath() string {
	return fmt.Sprintf("/bitable/v1/apps/%s/tables/%s/records", c.cfg.AppToken, c.cfg.TableID)
}

// GetRecords 分页拉全表并建立双索引
func (c *Client) GetRecords(ctx context.Context) (*TableSnapshot, error) {
	snapshot := &TableSnapshot{
		ByID:        make(map[string]Record),
		ByURL:       make(map[string]Record),
		ExistingIDs: make(map[string]struct{}),
	}

	pageToken := ""
	page := 0
	for {
		if err := c.pageLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		listResp, err := c.listPage(ctx, pageToken)
		if err != nil {
			return nil, fmt.Errorf("读取第 %d 页失败: %w", page+1, err)
		}
		page++

		for _, rec := range listResp.Data.Items {
			snapshot.Index(rec)
		}

		if !listResp.Data.HasMore || listResp.Data.PageToken == "" {
			break
		}
		pageToken = listResp.Data.PageToken
	}

	log.Printf("[Feishu] 全表读取完成: %d 页 %d 条记录", page, len(snapshot.ByID))
	return snapshot, nil
}

func (c *Client) listPage(ctx context.Context, pageToken string) (*ListRecordsResp, error) {
	fieldNames, _ := json.Marshal(c.cfg.FieldNames)

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		token, err := c.ensureToken(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		req := c.client.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetQueryParam("page_size", "500")
		if len(c.cfg.FieldNames) > 0 {
			req.SetQueryParam("field_names", string(fieldNames))
		}
		if pageToken != "" {
			req.SetQueryParam("page_token", pageToken)
		}

		resp, err := req.Get(c.recordsPath())
		if err != nil {
			lastErr = err
			continue
		}
		if isRateLimited(resp.StatusCode(), resp.String()) {
			lastErr = fmt.Errorf("限流 [429]")
			continue
		}
		if resp.StatusCode() != 200 {
			lastErr = fmt.Errorf("飞书接口错误 [%d]: %s", resp.StatusCode(), resp.String())
			continue
		}
		var listResp ListRecordsResp
		if err := json.Unmarshal(resp.Body(), &listResp); err != nil {
			lastErr = fmt.Errorf("解析分页响应失败: %v", err)
			continue
		}
		if listResp.Code != 0 {
			lastErr = fmt.Errorf("飞书接口错误 [%d]: %s", listResp.Code, listResp.Msg)
			continue
		}
		return &listResp, nil
	}
	return nil, lastErr
}

// Index 把一条记录并入双索引
func (s *TableSnapshot) Index(rec Record) {
	if id := FieldText(rec.Fields["商品ID"]); id != "" {
		s.ByID[id] = rec
		s.ExistingIDs[id] = struct{}{}
	}
	if u := NormalizeRecordURL(rec.Fields["商品链接"]); u != "" {
		s.ByURL[u] = rec
	}
}

// ==================== 批量写入 ====================

// BatchUpdate 分块提交记录更新
func (c *Client) BatchUpdate(ctx context.Context, records []Record) (*BatchResult, error) {
	return c.batchSubmit(ctx, records, "batch_update")
}

// BatchCreate 分块提交记录创建
// 调用方必须先用 ExistingIDs 过滤，保证同一商品ID至多创建一次
func (c *Client) BatchCreate(ctx context.Context, records []Record) (*BatchResult, error) {
	return c.batchSubmit(ctx, records, "batch_create")
}

func (c *Client) batchSubmit(ctx context.Context, records []Record, op string) (*BatchResult, error) {
	result := &BatchResult{}
	if len(records) == 0 {
		return result, nil
	}

	for start := 0; start < len(records); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]
		result.TotalBatches++

		if err := c.batchLimiter.Wait(ctx); err != nil {
			return result, err
		}

		if err := c.submitChunk(ctx, chunk, op); err != nil {
			log.Printf("[Feishu] %s 第 %d 批失败 (%d 条): %v", op, result.TotalBatches, len(chunk), err)
			result.FailedBatches++
			continue
		}
		result.SuccessCount += len(chunk)
	}
	return result, nil
}

func (c *Client) submitChunk(ctx context.Context, chunk []Record, op string) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt-1); err != nil {
				return err
			}
		}

		token, err := c.ensureToken(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		resp, err := c.client.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetBody(BatchRecordsReq{Records: chunk}).
			Post(c.recordsPath() + "/" + op)
		if err != nil {
			lastErr = err
			continue
		}
		if isRateLimited(resp.StatusCode(), resp.String()) {
			lastErr = fmt.Errorf("限流 [429]")
			continue
		}
		var batchResp BatchRecordsResp
		if jsonErr := json.Unmarshal(resp.Body(), &batchResp); jsonErr != nil {
			return fmt.Errorf("解析批量响应失败: %v", jsonErr)
		}
		if resp.StatusCode() != 200 || batchResp.Code != 0 {
			// 非限流错误不重试
			return fmt.Errorf("飞书接口错误 [%d/%d]: %s", resp.StatusCode(), batchResp.Code, batchResp.Msg)
		}
		return nil
	}
	return lastErr
}

// ==================== 重试 ====================

func isRateLimited(status int, body string) bool {
	return status == 429 || strings.Contains(body, "Too Many Requests")
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(c.cfg.BackoffFactor, float64(attempt)) * float64(c.backoffUnit))
	log.Printf("[Feishu] %.1fs 后重试", wait.Seconds())
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
