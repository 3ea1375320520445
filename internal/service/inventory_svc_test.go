package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/feishu"
)

func TestBuildInventoryFields_AllOut(t *testing.T) {
	item := model.InventoryItem{
		ProductID: "X",
		VariantInventory: []model.Variant{
			{Color: "A", Size: "M", InStock: false},
			{Color: "A", Size: "L", InStock: false},
		},
	}
	fields := BuildInventoryFields(item, "男")
	assert.Empty(t, fields.Colors)
	assert.Empty(t, fields.Sizes)
	assert.Equal(t, "都缺货", fields.Status)
}

func TestBuildInventoryFields_NoneOut(t *testing.T) {
	item := model.InventoryItem{
		ProductID: "X",
		VariantInventory: []model.Variant{
			{Color: "ネイビー", Size: "M", InStock: true},
			{Color: "ブラック", Size: "L", InStock: true},
		},
	}
	fields := BuildInventoryFields(item, "男")
	assert.Equal(t, "藏青色\n黑色", fields.Colors)
	assert.Equal(t, "M\nL", fields.Sizes)
	assert.Equal(t, "不缺货", fields.Status)
}

func TestBuildInventoryFields_PartialOut(t *testing.T) {
	item := model.InventoryItem{
		ProductID: "X",
		VariantInventory: []model.Variant{
			{Color: "ネイビー", Size: "M", InStock: true},
			{Color: "ブラック", Size: "M", InStock: false},
			{Color: "ブラック", Size: "L", InStock: false},
		},
	}
	fields := BuildInventoryFields(item, "男")
	assert.Equal(t, "藏青色", fields.Colors)
	assert.Equal(t, "M", fields.Sizes)
	assert.Equal(t, "黑色(M/L) 没货", fields.Status)
}

func TestInventoryService_Sync(t *testing.T) {
	snapshot := &feishu.TableSnapshot{
		ByID: map[string]feishu.Record{
			"X": {RecordID: "recX", Fields: map[string]any{model.FieldGender: "男"}},
		},
		ByURL:       map[string]feishu.Record{},
		ExistingIDs: map[string]struct{}{"X": {}},
	}
	client := feishu.NewDummyClient(snapshot)
	svc := NewInventoryService(client)

	items := []model.InventoryItem{
		{ProductID: "X", VariantInventory: []model.Variant{
			{Color: "A", Size: "M", InStock: false},
			{Color: "A", Size: "L", InStock: false},
		}},
		{ProductID: "MISSING", VariantInventory: []model.Variant{
			{Color: "A", Size: "M", InStock: true},
		}},
	}

	result, err := svc.Sync(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, []string{"MISSING"}, result.Missing)
	assert.Equal(t, 1, result.Batch.SuccessCount)

	require.Len(t, client.Updated, 1)
	rec := client.Updated[0]
	assert.Equal(t, "recX", rec.RecordID)
	assert.Equal(t, "", rec.Fields[model.FieldColors])
	assert.Equal(t, "", rec.Fields[model.FieldSizes])
	assert.Equal(t, "都缺货", rec.Fields[model.FieldStockStatus])
}

func TestDecodeInventoryFile(t *testing.T) {
	bare := []byte(`[{"productId":"X","variantInventory":[{"color":"A","size":"M","inStock":false}]}]`)
	items, err := model.DecodeInventoryFile(bare)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "X", items[0].ProductID)
	assert.False(t, items[0].VariantInventory[0].InStock)

	wrapped := []byte(`{"items":[{"productId":"Y","variantInventory":[]}]}`)
	items, err = model.DecodeInventoryFile(wrapped)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Y", items[0].ProductID)
}
