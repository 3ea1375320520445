package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/cache"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/config"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/repository"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/service"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/task"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/feishu"
)

// 命令行开关
var (
	flagStreaming     bool
	flagForceUpdate   bool
	flagTitleOnly     bool
	flagCategoryOnly  bool
	flagDryRun        bool
	flagVerbose       bool
	flagQuiet         bool
	flagNoResume      bool
	flagTimeout       int
	flagSaveInterval  int
	flagExport        string
	flagInventory     bool
	flagParallelTitle int
	flagFeishuConfig  string
)

func main() {
	// .env 不存在时静默跳过
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "run_pipeline <input.json>",
		Short: "日系高尔夫商品同步到飞书多维表格",
		Args:  cobra.ExactArgs(1),
		RunE:  runPipeline,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&flagStreaming, "streaming", false, "流式处理并记录续跑进度")
	flags.BoolVar(&flagForceUpdate, "force-update", false, "非空字段也重写")
	flags.BoolVar(&flagTitleOnly, "title-only", false, "只更新商品标题")
	flags.BoolVar(&flagCategoryOnly, "category-only", false, "只更新衣服分类")
	flags.BoolVar(&flagDryRun, "dry-run", false, "本地完整处理但不写飞书")
	flags.BoolVar(&flagVerbose, "verbose", false, "输出详细日志")
	flags.BoolVar(&flagQuiet, "quiet", false, "只输出结果行和汇总")
	flags.BoolVar(&flagNoResume, "no-resume", false, "忽略已有续跑进度")
	flags.IntVar(&flagTimeout, "timeout", 60, "单品软超时（秒）")
	flags.IntVar(&flagSaveInterval, "save-interval", 5, "进度落盘步长")
	flags.StringVar(&flagExport, "export", "", "把装配结果导出为 xlsx")
	flags.BoolVar(&flagInventory, "inventory", false, "按变体库存只重建颜色/尺码/库存状态")
	flags.IntVar(&flagParallelTitle, "parallel-titles", 0, "标题预生成并发数（至多 6）")
	flags.StringVar(&flagFeishuConfig, "feishu-config", "", "飞书配置 YAML，环境变量优先")

	if err := rootCmd.Execute(); err != nil {
		log.Printf("运行失败: %v", err)
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if flagQuiet {
		log.SetOutput(io.Discard)
	}
	if flagVerbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	// 1. 装配配置
	cfg, err := config.Load(flagFeishuConfig)
	if err != nil {
		return err
	}

	// 2. 初始化依赖
	deps, cleanup, err := initDependencies(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// 3. SIGINT/SIGTERM 在下一个商品边界退出
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. 执行
	if flagInventory {
		err = runInventory(ctx, deps, args[0])
	} else {
		err = runUpdate(ctx, deps, args[0])
	}

	if errors.Is(err, context.Canceled) {
		fmt.Println("已中断，进度以最近一次落盘为准")
		os.Exit(130)
	}
	return err
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	Config    *config.Config
	Client    feishu.BitableClient
	Assembler *service.AssemblerService
	Titles    *service.TitleService
	Fetcher   *service.FetcherService
	Inventory *service.InventoryService
	Keepalive *task.TokenKeepalive
}

func initDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	cleanup := func() {}

	// GLM 调用日志库（可选）
	var callLogRepo repository.GLMCallLogRepository
	if cfg.GLM.LogDBPath != "" {
		db, err := repository.OpenLogDB(cfg.GLM.LogDBPath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("打开调用日志库失败: %v", err)
		}
		callLogRepo = repository.NewGLMCallLogRepository(db)
	}

	// 翻译缓存
	if err := os.MkdirAll(cfg.ResultsDir, 0o755); err != nil {
		return nil, cleanup, err
	}
	translationCache, err := cache.NewTranslationCache(filepath.Join(cfg.ResultsDir, "translation_cache.json"))
	if err != nil {
		return nil, cleanup, err
	}

	glm := service.NewGLMService(&cfg.GLM, callLogRepo)
	titles := service.NewTitleService(glm)
	translator := service.NewTranslateService(glm, translationCache)

	deps := &Dependencies{
		Config:    cfg,
		Assembler: service.NewAssemblerService(titles, translator),
		Titles:    titles,
		Fetcher:   service.NewFetcherService(&cfg.Scraper),
	}

	// 飞书客户端: dummy 模式不触网
	if cfg.Feishu.Dummy {
		log.Printf("[Main] 使用 dummy 飞书客户端")
		deps.Client = feishu.NewDummyClient(nil)
	} else {
		client := feishu.NewClient(feishu.Config{
			AppID:         cfg.Feishu.AppID,
			AppSecret:     cfg.Feishu.AppSecret,
			AppToken:      cfg.Feishu.AppToken,
			TableID:       cfg.Feishu.TableID,
			BaseURL:       cfg.Feishu.BaseURL,
			MaxRetries:    cfg.Feishu.MaxRetries,
			BackoffFactor: cfg.Feishu.BackoffFactor,
			BatchSize:     cfg.Feishu.BatchSize,
			PageDelay:     cfg.Feishu.PageDelay,
			FieldNames:    model.AllFields,
		})
		deps.Client = client

		keepalive := task.NewTokenKeepalive(client)
		if err := keepalive.Start(); err != nil {
			return nil, cleanup, err
		}
		deps.Keepalive = keepalive
		cleanup = keepalive.Stop
	}

	deps.Inventory = service.NewInventoryService(deps.Client)
	return deps, cleanup, nil
}

// ==================== 执行 ====================

func runUpdate(ctx context.Context, deps *Dependencies, inputPath string) error {
	updateTask := &task.UpdateTask{
		Client:    deps.Client,
		Assembler: deps.Assembler,
		Fetcher:   deps.Fetcher,
		Titles:    deps.Titles,
	}

	result, err := updateTask.Run(ctx, task.UpdateOptions{
		InputPath:     inputPath,
		Streaming:     flagStreaming,
		ForceUpdate:   flagForceUpdate,
		TitleOnly:     flagTitleOnly,
		CategoryOnly:  flagCategoryOnly,
		DryRun:        flagDryRun,
		NoResume:      flagNoResume,
		Timeout:       time.Duration(flagTimeout) * time.Second,
		SaveInterval:  flagSaveInterval,
		ParallelTitle: flagParallelTitle,
		ExportPath:    flagExport,
	})
	if err != nil {
		return err
	}
	if result.FailedBatches > 0 {
		return fmt.Errorf("%d 个批次写入失败", result.FailedBatches)
	}
	return nil
}

func runInventory(ctx context.Context, deps *Dependencies, inputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("读取库存输入失败: %v", err)
	}
	items, err := model.DecodeInventoryFile(data)
	if err != nil {
		return fmt.Errorf("解析库存输入失败: %v", err)
	}

	result, err := deps.Inventory.Sync(ctx, items)
	if err != nil {
		return err
	}
	fmt.Printf("库存同步: 匹配 %d 缺失 %d 成功 %d\n",
		result.Matched, len(result.Missing), result.Batch.SuccessCount)
	if result.Batch.FailedBatches > 0 {
		return fmt.Errorf("%d 个批次写入失败", result.Batch.FailedBatches)
	}
	return nil
}
