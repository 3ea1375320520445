package model

import "time"

// BaseModel 入库实体的公共列
// 调用日志只追加不删除，不带软删除列
type BaseModel struct {
	ID        int64     `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
