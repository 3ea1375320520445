package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ==================== 配置结构 ====================

// GLMConfig GLM 接口配置
type GLMConfig struct {
	APIKey        string
	TitleModel    string
	BaseURL       string
	MinInterval   time.Duration
	MaxRetries    int
	BackoffFactor float64
	LogDBPath     string // 为空则不落调用日志
}

// FeishuConfig 飞书多维表格配置
type FeishuConfig struct {
	AppID         string        `yaml:"app_id"`
	AppSecret     string        `yaml:"app_secret"`
	AppToken      string        `yaml:"app_token"`
	TableID       string        `yaml:"table_id"`
	BaseURL       string        `yaml:"base_url"`
	MaxRetries    int           `yaml:"max_retries"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	BatchSize     int           `yaml:"batch_size"`
	Dummy         bool          `yaml:"-"`
	PageDelay     time.Duration `yaml:"-"`
}

// ScraperConfig 外部抓取器配置
type ScraperConfig struct {
	Command       string        // 为空则禁用详情抓取
	FetchInterval time.Duration // 相邻两次抓取的冷却
	Timeout       time.Duration // 单次抓取硬超时
}

// Config 进程级配置汇总
type Config struct {
	GLM     GLMConfig
	Feishu  FeishuConfig
	Scraper ScraperConfig

	ResultsDir string // 翻译缓存/日志/调用库的落盘目录
}

// ==================== 加载 ====================

// Load 从环境变量装配配置，必填项缺失即启动失败
// feishuFile 非空时先读 YAML 文件，环境变量覆盖文件值
func Load(feishuFile string) (*Config, error) {
	cfg := &Config{
		GLM: GLMConfig{
			APIKey:        firstEnv("ZHIPU_API_KEY", "GLM_API_KEY"),
			TitleModel:    getEnv("ZHIPU_TITLE_MODEL", "glm-4.5-air"),
			BaseURL:       getEnv("GLM_BASE_URL", "https://open.bigmodel.cn/api/paas/v4"),
			MinInterval:   envDuration("GLM_MIN_INTERVAL", 400*time.Millisecond),
			MaxRetries:    envInt("GLM_MAX_RETRIES", 3),
			BackoffFactor: envFloat("GLM_BACKOFF_FACTOR", 1.8),
			LogDBPath:     getEnv("GLM_LOG_DB", ""),
		},
		Scraper: ScraperConfig{
			Command:       getEnv("SCRAPER_CMD", ""),
			FetchInterval: envDuration("SCRAPER_FETCH_INTERVAL", 2*time.Second),
			Timeout:       180 * time.Second,
		},
		ResultsDir: getEnv("RESULTS_DIR", "results"),
	}

	feishu, err := loadFeishu(feishuFile)
	if err != nil {
		return nil, err
	}
	cfg.Feishu = *feishu

	if cfg.GLM.APIKey == "" {
		return nil, fmt.Errorf("缺少必需环境变量 ZHIPU_API_KEY (或 GLM_API_KEY)")
	}

	return cfg, nil
}

// loadFeishu 装配飞书配置: 文件打底，环境变量覆盖
func loadFeishu(file string) (*FeishuConfig, error) {
	cfg := &FeishuConfig{
		BaseURL:       "https://open.feishu.cn/open-apis",
		MaxRetries:    envInt("FEISHU_MAX_RETRIES", 3),
		BackoffFactor: envFloat("FEISHU_BACKOFF_FACTOR", 1.8),
		BatchSize:     envInt("FEISHU_BATCH_SIZE", 30),
		PageDelay:     200 * time.Millisecond,
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("读取飞书配置文件失败: %v", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("飞书配置文件格式错误: %v", err)
		}
	}

	overlay := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	overlay(&cfg.AppID, "FEISHU_APP_ID")
	overlay(&cfg.AppSecret, "FEISHU_APP_SECRET")
	overlay(&cfg.AppToken, "FEISHU_APP_TOKEN")
	overlay(&cfg.TableID, "FEISHU_TABLE_ID")
	overlay(&cfg.BaseURL, "FEISHU_BASE_URL")

	cfg.Dummy = os.Getenv("FEISHU_CLIENT") == "dummy"

	// dummy 客户端不需要真实凭据
	if !cfg.Dummy {
		for _, kv := range []struct{ name, val string }{
			{"FEISHU_APP_ID", cfg.AppID},
			{"FEISHU_APP_SECRET", cfg.AppSecret},
			{"FEISHU_APP_TOKEN", cfg.AppToken},
			{"FEISHU_TABLE_ID", cfg.TableID},
		} {
			if kv.val == "" {
				return nil, fmt.Errorf("缺少必需环境变量 %s", kv.name)
			}
		}
	}

	return cfg, nil
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func envFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// envDuration 秒数或 time.Duration 字符串均可 ("0.4" 与 "400ms" 等价)
func envDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second))
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultValue
}
