package model

import "gorm.io/datatypes"

// GLMCallLog GLM 调用日志
type GLMCallLog struct {
	BaseModel

	ProductID string `gorm:"size:64;index;comment:商品ID"`

	// 调用信息
	CallType  string `gorm:"size:32;index;comment:调用类型(title/translate)"`
	ModelName string `gorm:"size:64;comment:模型名称"`

	// 用量统计
	PromptChars int `gorm:"default:0;comment:提示词字符数"`
	OutputChars int `gorm:"default:0;comment:输出字符数"`
	Attempts    int `gorm:"default:1;comment:实际请求次数(含429重试)"`

	// 性能
	DurationMs int64 `gorm:"comment:耗时(毫秒)"`

	// 状态
	Status   string         `gorm:"size:32;index;default:success;comment:状态(success/failed)"`
	ErrorMsg string         `gorm:"size:1024;comment:错误信息"`
	Meta     datatypes.JSON `gorm:"comment:请求参数快照(temperature/max_tokens等)"`
}

func (GLMCallLog) TableName() string {
	return "glm_call_logs"
}

// ==================== 调用类型常量 ====================

const (
	GLMCallTypeTitle     = "title"
	GLMCallTypeTranslate = "translate"
)

// ==================== 状态常量 ====================

const (
	GLMCallStatusSuccess = "success"
	GLMCallStatusFailed  = "failed"
)
