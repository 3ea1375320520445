package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
)

func newAssemblerTestProduct() *model.Product {
	return &model.Product{
		ProductID:   "LE1872EM012989",
		ProductName: "25FW デサント メンズ 裏起毛ブルゾン",
		Brand:       "DESCENTE",
		Gender:      "男",
		DetailURL:   "https://store.descente.co.jp/commodity/SDSC0140D/LE1872EM012989/",
		Price:       "￥19,800",
		Colors: []model.ColorEntry{
			{Name: "ネイビー", Code: "NV"},
			{Name: "ブラック", Code: "BK"},
		},
		Sizes: []string{"S", "M", "L", "LL", "3L"},
		Images: model.ImageSet{
			Main:    "https://img/main.jpg",
			Gallery: []string{"https://img/1.jpg", "https://img/2.jpg"},
		},
	}
}

func TestAssemblerService_Assemble(t *testing.T) {
	svc := NewAssemblerService(nil, NewTranslateService(nil, nil))
	p := newAssemblerTestProduct()

	rec, err := svc.Assemble(context.Background(), p, AssembleOptions{
		PreGeneratedTitle: "25秋冬迪桑特DESCENTE高尔夫男士保暖防风外套",
	})
	require.NoError(t, err)
	fields := rec.Fields

	assert.Equal(t, "LE1872EM012989", fields[model.FieldProductID])
	assert.Equal(t, "1340", fields[model.FieldPrice], "￥19,800 -> 1340")
	assert.Equal(t, "藏青色\n黑色", fields[model.FieldColors])
	assert.Equal(t, "S\nM\nL\nXL\nXXXL", fields[model.FieldSizes])
	assert.Equal(t, "男", fields[model.FieldGender])
	assert.Equal(t, "外套", fields[model.FieldClothing])
	assert.Equal(t, "迪桑特DESCENTE", fields[model.FieldBrand])
	assert.Equal(t, "https://img/main.jpg\nhttps://img/1.jpg\nhttps://img/2.jpg", fields[model.FieldImageURLs])
	assert.Equal(t, 3, fields[model.FieldImageCount])
	assert.False(t, rec.TitleFromTemplate)
}

func TestAssemblerService_Assemble_TitleOnly(t *testing.T) {
	svc := NewAssemblerService(nil, nil)
	rec, err := svc.Assemble(context.Background(), newAssemblerTestProduct(), AssembleOptions{
		PreGeneratedTitle: "25秋冬迪桑特DESCENTE高尔夫男士保暖防风外套",
		TitleOnly:         true,
	})
	require.NoError(t, err)
	assert.Len(t, rec.Fields, 1)
	assert.Equal(t, "25秋冬迪桑特DESCENTE高尔夫男士保暖防风外套", rec.Fields[model.FieldTitle])
}

func TestAssemblerService_Assemble_PriceFromVariants(t *testing.T) {
	svc := NewAssemblerService(nil, NewTranslateService(nil, nil))
	p := newAssemblerTestProduct()
	p.Price = ""
	p.Variants = []model.Variant{
		{Color: "ネイビー", Size: "M", InStock: true, PriceJPY: 19800},
	}

	rec, err := svc.Assemble(context.Background(), p, AssembleOptions{PreGeneratedTitle: "t"})
	require.NoError(t, err)
	assert.Equal(t, "1340", rec.Fields[model.FieldPrice])
	assert.Equal(t, "￥19800", p.Price, "发现的价格应回写商品")
}

func TestAssemblerService_Assemble_FemaleNumberSizes(t *testing.T) {
	svc := NewAssemblerService(nil, NewTranslateService(nil, nil))
	p := newAssemblerTestProduct()
	p.Gender = "女"
	p.Sizes = []string{"00", "0", "1", "2"}

	rec, err := svc.Assemble(context.Background(), p, AssembleOptions{PreGeneratedTitle: "t"})
	require.NoError(t, err)
	assert.Equal(t, "XXS\nXS\nS\nM", rec.Fields[model.FieldSizes])
}

func TestAssemblerService_Assemble_DetailUnion(t *testing.T) {
	svc := NewAssemblerService(nil, NewTranslateService(nil, nil))
	p := newAssemblerTestProduct()
	p.SetDetailData(map[string]any{
		"colors": []any{map[string]any{"name": "ホワイト"}},
		"images": map[string]any{
			"variants": []any{"https://img/variant.jpg", "https://img/1.jpg"},
		},
	})

	rec, err := svc.Assemble(context.Background(), p, AssembleOptions{PreGeneratedTitle: "t"})
	require.NoError(t, err)
	assert.Equal(t, "藏青色\n黑色\n白色", rec.Fields[model.FieldColors], "详情颜色并入并译名")
	assert.Equal(t,
		"https://img/main.jpg\nhttps://img/1.jpg\nhttps://img/2.jpg\nhttps://img/variant.jpg",
		rec.Fields[model.FieldImageURLs], "变体图并入且去重")
	assert.Equal(t, 4, rec.Fields[model.FieldImageCount])
}

func TestAssemblerService_Assemble_MainImageFallback(t *testing.T) {
	svc := NewAssemblerService(nil, NewTranslateService(nil, nil))
	p := newAssemblerTestProduct()
	p.Images = model.ImageSet{}
	p.MainImage = "https://img/only.jpg"

	rec, err := svc.Assemble(context.Background(), p, AssembleOptions{PreGeneratedTitle: "t"})
	require.NoError(t, err)
	assert.Equal(t, "https://img/only.jpg", rec.Fields[model.FieldImageURLs])
	assert.Equal(t, 1, rec.Fields[model.FieldImageCount])
}

func TestAssemblerService_Assemble_TranslationFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewAssemblerService(nil, NewTranslateService(newTestGLMService(server.URL), nil))
	p := newAssemblerTestProduct()
	p.Description = "裏起毛で暖かいブルゾンです。"

	rec, err := svc.Assemble(context.Background(), p, AssembleOptions{PreGeneratedTitle: "t"})
	require.NoError(t, err)
	assert.True(t, rec.TranslationFellBack)
	assert.Equal(t, "裏起毛で暖かいブルゾンです。", rec.Fields[model.FieldDescription], "翻译失败退回原文")
}
