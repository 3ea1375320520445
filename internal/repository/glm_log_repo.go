package repository

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
)

// ==================== 仓储接口 ====================

// GLMCallLogRepository GLM 调用日志仓储接口
type GLMCallLogRepository interface {
	Create(ctx context.Context, log *model.GLMCallLog) error

	// 统计查询
	GetUsageByProduct(ctx context.Context, productID string) (*GLMUsageStats, error)
	GetTotalUsage(ctx context.Context) (*GLMUsageStats, error)
}

// GLMUsageStats GLM 用量统计
type GLMUsageStats struct {
	TotalCalls    int64   `json:"total_calls"`
	TitleCalls    int64   `json:"title_calls"`
	TransCalls    int64   `json:"trans_calls"`
	SuccessCount  int64   `json:"success_count"`
	FailedCount   int64   `json:"failed_count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// ==================== 仓储实现 ====================

type glmCallLogRepo struct {
	db *gorm.DB
}

// NewGLMCallLogRepository 创建 GLM 调用日志仓储
func NewGLMCallLogRepository(db *gorm.DB) GLMCallLogRepository {
	return &glmCallLogRepo{db: db}
}

// OpenLogDB 打开调用日志库（sqlite 文件）并完成迁移
func OpenLogDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("打开调用日志库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.GLMCallLog{}); err != nil {
		return nil, fmt.Errorf("调用日志库迁移失败: %v", err)
	}
	return db, nil
}

func (r *glmCallLogRepo) Create(ctx context.Context, log *model.GLMCallLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *glmCallLogRepo) GetUsageByProduct(ctx context.Context, productID string) (*GLMUsageStats, error) {
	return r.queryStats(r.db.WithContext(ctx).Model(&model.GLMCallLog{}).Where("product_id = ?", productID))
}

func (r *glmCallLogRepo) GetTotalUsage(ctx context.Context) (*GLMUsageStats, error) {
	return r.queryStats(r.db.WithContext(ctx).Model(&model.GLMCallLog{}))
}

func (r *glmCallLogRepo) queryStats(q *gorm.DB) (*GLMUsageStats, error) {
	var stats GLMUsageStats
	err := q.Select(`
		COUNT(*) as total_calls,
		SUM(CASE WHEN call_type = ? THEN 1 ELSE 0 END) as title_calls,
		SUM(CASE WHEN call_type = ? THEN 1 ELSE 0 END) as trans_calls,
		SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) as success_count,
		SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) as failed_count,
		AVG(duration_ms) as avg_duration_ms`,
		model.GLMCallTypeTitle, model.GLMCallTypeTranslate,
		model.GLMCallStatusSuccess, model.GLMCallStatusFailed,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
