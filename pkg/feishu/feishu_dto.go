package feishu

// ==========================================
// DTO: 飞书开放平台多维表格 (Bitable) 接口结构
// ==========================================

// TenantTokenReq 租户令牌请求
// POST /auth/v3/tenant_access_token/internal
type TenantTokenReq struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

// TenantTokenResp 租户令牌响应
type TenantTokenResp struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int64  `json:"expire"` // 有效期，秒
}

// Record 多维表格单条记录
type Record struct {
	RecordID string         `json:"record_id,omitempty"`
	Fields   map[string]any `json:"fields"`
}

// ListRecordsResp 分页读取响应
// GET /bitable/v1/apps/{app_token}/tables/{table_id}/records
type ListRecordsResp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		HasMore   bool     `json:"has_more"`
		PageToken string   `json:"page_token"`
		Total     int      `json:"total"`
		Items     []Record `json:"items"`
	} `json:"data"`
}

// BatchRecordsReq 批量创建/更新请求
// POST /bitable/v1/apps/{app_token}/tables/{table_id}/records/batch_create
// POST /bitable/v1/apps/{app_token}/tables/{table_id}/records/batch_update
type BatchRecordsReq struct {
	Records []Record `json:"records"`
}

// BatchRecordsResp 批量创建/更新响应
type BatchRecordsResp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Records []Record `json:"records"`
	} `json:"data"`
}

// SelectOption 单选/多选字段在读取时的返回形态
// 文本字段也可能以 []SelectOption 形式返回，统一在比较前归一化
type SelectOption struct {
	Text     string `json:"text"`
	OptionID string `json:"option_id,omitempty"`
}
