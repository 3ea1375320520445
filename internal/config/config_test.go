package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setDummyEnv(t *testing.T) {
	t.Setenv("ZHIPU_API_KEY", "test-key")
	t.Setenv("FEISHU_CLIENT", "dummy")
}

func TestLoad_Defaults(t *testing.T) {
	setDummyEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GLM.TitleModel != "glm-4.5-air" {
		t.Errorf("默认标题模型不正确: %s", cfg.GLM.TitleModel)
	}
	if cfg.GLM.MinInterval != 400*time.Millisecond {
		t.Errorf("默认最小间隔不正确: %v", cfg.GLM.MinInterval)
	}
	if cfg.GLM.MaxRetries != 3 {
		t.Errorf("默认重试次数不正确: %d", cfg.GLM.MaxRetries)
	}
	if cfg.GLM.BackoffFactor != 1.8 {
		t.Errorf("默认退避因子不正确: %v", cfg.GLM.BackoffFactor)
	}
	if !cfg.Feishu.Dummy {
		t.Error("FEISHU_CLIENT=dummy 未生效")
	}
	if cfg.Feishu.BatchSize != 30 {
		t.Errorf("默认批大小不正确: %d", cfg.Feishu.BatchSize)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("ZHIPU_API_KEY", "")
	t.Setenv("GLM_API_KEY", "")
	t.Setenv("FEISHU_CLIENT", "dummy")

	if _, err := Load(""); err == nil {
		t.Error("缺少 API Key 应当报错")
	}
}

func TestLoad_AlternateKeyName(t *testing.T) {
	t.Setenv("ZHIPU_API_KEY", "")
	t.Setenv("GLM_API_KEY", "alt-key")
	t.Setenv("FEISHU_CLIENT", "dummy")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GLM.APIKey != "alt-key" {
		t.Errorf("GLM_API_KEY 备用名未生效: %s", cfg.GLM.APIKey)
	}
}

func TestLoad_MissingFeishuCredentials(t *testing.T) {
	t.Setenv("ZHIPU_API_KEY", "test-key")
	t.Setenv("FEISHU_CLIENT", "")
	t.Setenv("FEISHU_APP_ID", "")
	t.Setenv("FEISHU_APP_SECRET", "")
	t.Setenv("FEISHU_APP_TOKEN", "")
	t.Setenv("FEISHU_TABLE_ID", "")

	if _, err := Load(""); err == nil {
		t.Error("缺少飞书凭据应当报错")
	}
}

func TestLoad_FeishuYAMLFile(t *testing.T) {
	setDummyEnv(t)

	path := filepath.Join(t.TempDir(), "feishu.yaml")
	content := "app_id: cli_from_file\napp_secret: secret_from_file\napp_token: bascn_file\ntable_id: tbl_file\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Feishu.AppID != "cli_from_file" {
		t.Errorf("YAML app_id 未生效: %s", cfg.Feishu.AppID)
	}

	// 环境变量覆盖文件
	t.Setenv("FEISHU_APP_ID", "cli_from_env")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Feishu.AppID != "cli_from_env" {
		t.Errorf("环境变量应覆盖文件值: %s", cfg.Feishu.AppID)
	}
}

func TestLoad_MalformedFeishuFile(t *testing.T) {
	setDummyEnv(t)

	path := filepath.Join(t.TempDir(), "feishu.yaml")
	if err := os.WriteFile(path, []byte("app_id: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("格式错误的配置文件应当报错")
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("GLM_MIN_INTERVAL", "0.4")
	if got := envDuration("GLM_MIN_INTERVAL", time.Second); got != 400*time.Millisecond {
		t.Errorf("秒数形式解析失败: %v", got)
	}

	t.Setenv("GLM_MIN_INTERVAL", "250ms")
	if got := envDuration("GLM_MIN_INTERVAL", time.Second); got != 250*time.Millisecond {
		t.Errorf("duration 形式解析失败: %v", got)
	}
}
