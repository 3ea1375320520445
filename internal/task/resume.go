package task

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
)

// ==================== 续跑进度 ====================

const resumePrefix = "streaming_progress_"

// ResumeStore 输入文件旁的续跑进度档
// 每次运行写自己的新文件，续跑时读同一输入的最新一份
type ResumeStore struct {
	inputPath string
	path      string
	state     model.ResumeState
}

// NewResumeStore 创建本次运行的进度档
// 文件名: streaming_progress_{输入文件名去扩展}_{YYYYmmdd_HHMMSS}.json
func NewResumeStore(inputPath string, start time.Time) *ResumeStore {
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	name := fmt.Sprintf("%s%s_%s.json", resumePrefix, stem, start.Format("20060102_150405"))
	return &ResumeStore{
		inputPath: inputPath,
		path:      filepath.Join(filepath.Dir(inputPath), name),
		state: model.ResumeState{
			Timestamp: start.Format(time.RFC3339),
		},
	}
}

// Path 本次运行的进度文件路径
func (s *ResumeStore) Path() string {
	return s.path
}

// LoadLatest 读取同一输入的最新进度档
// 没有或损坏都返回 nil，重复处理可以接受
func (s *ResumeStore) LoadLatest() *model.ResumeState {
	stem := strings.TrimSuffix(filepath.Base(s.inputPath), filepath.Ext(s.inputPath))
	pattern := filepath.Join(filepath.Dir(s.inputPath), resumePrefix+stem+"_*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return nil
	}

	// 文件名里的时间戳可排序，最后一个即最新
	sort.Strings(matches)
	latest := matches[len(matches)-1]
	if latest == s.path {
		if len(matches) < 2 {
			return nil
		}
		latest = matches[len(matches)-2]
	}

	data, err := os.ReadFile(latest)
	if err != nil {
		log.Printf("[Resume] 读取进度档失败: %v", err)
		return nil
	}
	var state model.ResumeState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("[Resume] 进度档损坏，忽略: %s", latest)
		return nil
	}
	log.Printf("[Resume] 续跑自 %s: 已处理 %d 条", filepath.Base(latest), state.ProcessedCount)
	return &state
}

// Append 记录一条已处理商品，只增不减
func (s *ResumeStore) Append(productID string) {
	s.state.ProcessedIDs = append(s.state.ProcessedIDs, productID)
	s.state.ProcessedCount = len(s.state.ProcessedIDs)
}

// Count 本次已处理条数
func (s *ResumeStore) Count() int {
	return s.state.ProcessedCount
}

// Flush 原子落盘: 先写临时文件再改名
// 失败只记日志，下次运行重复处理可以接受
func (s *ResumeStore) Flush() error {
	s.state.Timestamp = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("写进度临时文件失败: %v", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("进度文件改名失败: %v", err)
	}
	return nil
}
