package feishu

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// DummyClient 不触网的客户端替身
// FEISHU_CLIENT=dummy 或 --dry-run 时使用，记录所有写入供事后检查
type DummyClient struct {
	mu       sync.Mutex
	Snapshot *TableSnapshot
	Created  []Record
	Updated  []Record
}

// NewDummyClient 创建替身，snapshot 为 nil 时视为空表
func NewDummyClient(snapshot *TableSnapshot) *DummyClient {
	if snapshot == nil {
		snapshot = &TableSnapshot{
			ByID:        make(map[string]Record),
			ByURL:       make(map[string]Record),
			ExistingIDs: make(map[string]struct{}),
		}
	}
	return &DummyClient{Snapshot: snapshot}
}

func (d *DummyClient) GetRecords(ctx context.Context) (*TableSnapshot, error) {
	return d.Snapshot, nil
}

func (d *DummyClient) BatchUpdate(ctx context.Context, records []Record) (*BatchResult, error) {
	if len(records) == 0 {
		return &BatchResult{}, nil
	}
	d.mu.Lock()
	d.Updated = append(d.Updated, records...)
	d.mu.Unlock()
	log.Printf("[Feishu] (dummy) batch_update %d 条", len(records))
	return &BatchResult{SuccessCount: len(records), TotalBatches: 1}, nil
}

func (d *DummyClient) BatchCreate(ctx context.Context, records []Record) (*BatchResult, error) {
	if len(records) == 0 {
		return &BatchResult{}, nil
	}
	d.mu.Lock()
	for _, rec := range records {
		if rec.RecordID == "" {
			rec.RecordID = fmt.Sprintf("dummy_rec_%03d", len(d.Created)+1)
		}
		d.Snapshot.Index(rec)
		d.Created = append(d.Created, rec)
	}
	d.mu.Unlock()
	log.Printf("[Feishu] (dummy) batch_create %d 条", len(records))
	return &BatchResult{SuccessCount: len(records), TotalBatches: 1}, nil
}
