package task

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/config"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/service"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/feishu"
)

// 固定返回一个合格标题的 GLM 替身
func newTitleServer(t *testing.T, title string, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": title}, "finish_reason": "stop"},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestTask(serverURL string, client feishu.BitableClient) *UpdateTask {
	glm := service.NewGLMService(&config.GLMConfig{
		APIKey:      "test",
		TitleModel:  "glm-4.5-air",
		BaseURL:     serverURL,
		MinInterval: time.Millisecond,
	}, nil)
	titles := service.NewTitleService(glm)
	translator := service.NewTranslateService(glm, nil)
	return &UpdateTask{
		Client:    client,
		Assembler: service.NewAssemblerService(titles, translator),
		Titles:    titles,
	}
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func emptySnapshotWith(records ...feishu.Record) *feishu.TableSnapshot {
	s := &feishu.TableSnapshot{
		ByID:        make(map[string]feishu.Record),
		ByURL:       make(map[string]feishu.Record),
		ExistingIDs: make(map[string]struct{}),
	}
	for _, rec := range records {
		s.Index(rec)
	}
	return s
}

const happyPathInput = `{
  "product": {
    "productId": "LE1872EM012989",
    "productName": "25FW 裏起毛ブルゾン",
    "description": "裏起毛で暖かいブルゾンです。",
    "brand": "DESCENTE GOLF",
    "priceText": "￥19,800 (税込)"
  },
  "colors": [{"name": "ネイビー", "code": "NV"}, {"name": "ブラック", "code": "BK"}],
  "sizes": ["S", "M", "L", "LL", "3L"],
  "images": {"product": ["https://img/a.jpg"]},
  "scrapeInfo": {"url": "https://store.descente.co.jp/commodity/SDSC0140D/LE1872EM012989/"}
}`

func TestUpdateTask_Run_HappyPath(t *testing.T) {
	server := newTitleServer(t, "25秋冬迪桑特DESCENTE高尔夫男士保暖防风外套", nil)
	defer server.Close()

	remote := feishu.Record{RecordID: "rec1", Fields: map[string]any{
		model.FieldProductID: "LE1872EM012989",
		model.FieldDetailURL: "https://store.descente.co.jp/commodity/SDSC0140D/LE1872EM012989/",
	}}
	client := feishu.NewDummyClient(emptySnapshotWith(remote))

	task := newTestTask(server.URL, client)
	input := writeInput(t, "products.json", happyPathInput)

	result, err := task.Run(context.Background(), UpdateOptions{InputPath: input})
	require.NoError(t, err)

	assert.Equal(t, 1, result.CandidatesCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Zero(t, result.FailedBatches)
	assert.Empty(t, client.Created, "已有记录不应触发创建")

	require.Len(t, client.Updated, 1)
	rec := client.Updated[0]
	assert.Equal(t, "rec1", rec.RecordID)
	assert.Equal(t, "1340", rec.Fields[model.FieldPrice])
	assert.Equal(t, "藏青色\n黑色", rec.Fields[model.FieldColors])
	assert.Equal(t, "S\nM\nL\nXL\nXXXL", rec.Fields[model.FieldSizes])
	assert.GreaterOrEqual(t, rec.Fields[model.FieldImageCount], 1)
	assert.True(t, service.ValidateTitle(
		feishu.FieldText(rec.Fields[model.FieldTitle]), "迪桑特DESCENTE"))
}

const fiveProductInput = `{
  "products": {
    "A": {"productName": "ゴルフジャケット", "brand": "Callaway", "detailUrl": "https://x/p/A"},
    "B": {"productName": "ゴルフジャケット", "brand": "Callaway", "detailUrl": "https://x/p/B"},
    "C": {"productName": "ゴルフジャケット", "brand": "Callaway", "detailUrl": "https://x/p/C"},
    "D": {"productName": "ゴルフジャケット", "brand": "Callaway", "detailUrl": "https://x/p/D"},
    "E": {"productName": "ゴルフジャケット", "brand": "Callaway", "detailUrl": "https://x/p/E"}
  }
}`

func TestUpdateTask_Run_ResumeSkipsProcessed(t *testing.T) {
	glmCalls := 0
	server := newTitleServer(t, "25秋冬卡拉威Callaway高尔夫男士舒适保暖外套", &glmCalls)
	defer server.Close()

	var records []feishu.Record
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		records = append(records, feishu.Record{RecordID: "rec" + id, Fields: map[string]any{
			model.FieldProductID: id,
			model.FieldDetailURL: "https://x/p/" + id,
		}})
	}
	client := feishu.NewDummyClient(emptySnapshotWith(records...))

	task := newTestTask(server.URL, client)
	input := writeInput(t, "products.json", fiveProductInput)

	prior := filepath.Join(filepath.Dir(input), "streaming_progress_products_20260901_090000.json")
	require.NoError(t, os.WriteFile(prior, []byte(
		`{"timestamp":"2026-09-01T09:00:00Z","processed_count":3,"processed_ids":["A","B","C"]}`), 0o644))

	result, err := task.Run(context.Background(), UpdateOptions{
		InputPath: input,
		Streaming: true,
		TitleOnly: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.CandidatesCount)
	assert.Equal(t, 3, result.SkippedCount, "A/B/C 已处理")
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 2, glmCalls, "已处理商品不应再调 GLM")

	require.Len(t, client.Updated, 2)
	assert.Equal(t, "recD", client.Updated[0].RecordID)
	assert.Equal(t, "recE", client.Updated[1].RecordID)
}

func TestUpdateTask_Run_URLGraftNoCreate(t *testing.T) {
	server := newTitleServer(t, "25秋冬卡拉威Callaway高尔夫男士舒适保暖外套", nil)
	defer server.Close()

	legacy := feishu.Record{RecordID: "recOld", Fields: map[string]any{
		model.FieldProductID: "LEGACY-OLD",
		model.FieldDetailURL: "https://x/p/1",
	}}
	client := feishu.NewDummyClient(emptySnapshotWith(legacy))

	task := newTestTask(server.URL, client)
	input := writeInput(t, "products.json", `{
  "products": {
    "LE-NEW-1": {"productName": "ゴルフジャケット", "brand": "Callaway", "detailUrl": "https://x/p/1"}
  }
}`)

	result, err := task.Run(context.Background(), UpdateOptions{InputPath: input, TitleOnly: true})
	require.NoError(t, err)

	assert.Empty(t, client.Created, "链接匹配到旧记录时不得创建")
	require.Len(t, client.Updated, 1)
	assert.Equal(t, "recOld", client.Updated[0].RecordID, "更新应落在旧记录上")
	assert.Equal(t, 1, result.SuccessCount)
}

func TestUpdateTask_Run_CreatesMissing(t *testing.T) {
	server := newTitleServer(t, "25秋冬卡拉威Callaway高尔夫男士舒适保暖外套", nil)
	defer server.Close()

	client := feishu.NewDummyClient(nil)
	task := newTestTask(server.URL, client)
	input := writeInput(t, "products.json", `{
  "products": {
    "NEW-2": {"productName": "ゴルフジャケット", "brand": "Callaway", "detailUrl": "https://x/p/2"}
  }
}`)

	result, err := task.Run(context.Background(), UpdateOptions{InputPath: input, TitleOnly: true})
	require.NoError(t, err)

	require.Len(t, client.Created, 1)
	created := client.Created[0]
	assert.Equal(t, "NEW-2", created.Fields[model.FieldProductID])
	assert.Equal(t, "https://x/p/2", created.Fields[model.FieldDetailURL])
	assert.Equal(t, "卡拉威Callaway", created.Fields[model.FieldBrand])
	assert.Len(t, created.Fields, 3, "补建只带最小字段")

	require.Len(t, client.Updated, 1)
	assert.Equal(t, created.RecordID, client.Updated[0].RecordID)
	assert.Equal(t, 1, result.SuccessCount)
}

func TestUpdateTask_Run_NonCandidateSkipped(t *testing.T) {
	glmCalls := 0
	server := newTitleServer(t, "25秋冬卡拉威Callaway高尔夫男士舒适保暖外套", &glmCalls)
	defer server.Close()

	full := feishu.Record{RecordID: "recF", Fields: map[string]any{
		model.FieldProductID: "F1",
		model.FieldDetailURL: "https://x/p/F1",
		model.FieldTitle:     "25秋冬卡拉威Callaway高尔夫男士舒适保暖外套",
	}}
	client := feishu.NewDummyClient(emptySnapshotWith(full))

	task := newTestTask(server.URL, client)
	input := writeInput(t, "products.json", `{
  "products": {
    "F1": {"productName": "ゴルフジャケット", "brand": "Callaway", "detailUrl": "https://x/p/F1"}
  }
}`)

	result, err := task.Run(context.Background(), UpdateOptions{InputPath: input, TitleOnly: true})
	require.NoError(t, err)
	assert.Zero(t, result.CandidatesCount, "目标字段非空的商品不是候选")
	assert.Zero(t, glmCalls)
	assert.Empty(t, client.Updated)
}

func TestUpdateTask_Run_DryRunWritesNothing(t *testing.T) {
	server := newTitleServer(t, "25秋冬卡拉威Callaway高尔夫男士舒适保暖外套", nil)
	defer server.Close()

	client := feishu.NewDummyClient(nil)
	task := newTestTask(server.URL, client)
	input := writeInput(t, "products.json", `{
  "products": {
    "D1": {"productName": "ゴルフジャケット", "brand": "Callaway", "detailUrl": "https://x/p/D1"}
  }
}`)

	result, err := task.Run(context.Background(), UpdateOptions{InputPath: input, TitleOnly: true, DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, client.Created, "dry-run 不应创建")
	assert.Empty(t, client.Updated, "dry-run 不应更新")
	assert.Equal(t, 1, result.SuccessCount)
}
