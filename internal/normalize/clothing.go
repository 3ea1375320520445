package normalize

import (
	"strings"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
)

// 衣服分类封闭集合
const (
	ClothingHoodie   = "卫衣"
	ClothingJacket   = "外套"
	ClothingVest     = "马甲"
	ClothingPolo     = "POLO"
	ClothingShortTee = "短袖"
	ClothingLongTee  = "长袖"
	ClothingTights   = "紧身衣裤"
	ClothingTraining = "训练服"
	ClothingShorts   = "短裤"
	ClothingPants    = "长裤"
	ClothingSkirt    = "短裙"
	ClothingBelt     = "腰带"
	ClothingSocks    = "袜子"
	ClothingGloves   = "手套"
	ClothingHat      = "帽子"
	ClothingGolfBall = "高尔夫球"
	ClothingGolfBag  = "球包"
	ClothingOther    = "其他"
)

// clothingRule 一组同类关键词，顺序即优先级
type clothingRule struct {
	label    string
	keywords []string
}

// 判定顺序有讲究: 卫衣在外套前（hoodie jacket 常同现），马甲在 POLO 前，
// 短裤在长裤前（shorts 含 short）
var clothingRules = []clothingRule{
	{ClothingHoodie, []string{"hoodie", "sweat", "パーカー", "スウェット", "トレーナー", "フーディ", "卫衣"}},
	{ClothingVest, []string{"vest", "gilet", "ベスト", "ジレ", "马甲", "背心"}},
	{ClothingJacket, []string{"jacket", "blouson", "coat", "down", "outer", "windbreaker", "ジャケット", "ブルゾン", "コート", "ダウン", "アウター", "ウインド", "ウィンド", "外套", "夹克"}},
	{ClothingPolo, []string{"polo", "ポロ"}},
	{ClothingTights, []string{"tights", "compression", "inner", "leggings", "タイツ", "コンプレッション", "インナー", "レギンス", "紧身", "打底", "压缩"}},
	{ClothingTraining, []string{"training", "トレーニング", "训练"}},
	{ClothingShorts, []string{"shorts", "short pants", "half pants", "ショートパンツ", "ハーフパンツ", "短パン", "短裤"}},
	{ClothingSkirt, []string{"skirt", "skort", "culotte", "スカート", "スコート", "キュロット", "短裙", "裙"}},
	{ClothingPants, []string{"pants", "trousers", "slacks", "joggers", "パンツ", "スラックス", "ズボン", "长裤"}},
	{ClothingShortTee, []string{"short sleeve", "half sleeve", "t-shirt", "tshirt", "tee", "半袖", "半そで", "ハイネックシャツ", "モックネック", "短袖"}},
	{ClothingLongTee, []string{"long sleeve", "長袖", "长袖", "ロングスリーブ"}},
	{ClothingBelt, []string{"belt", "ベルト", "腰带"}},
	{ClothingSocks, []string{"socks", "sox", "ソックス", "靴下", "袜"}},
	{ClothingGloves, []string{"glove", "グローブ", "手袋", "手套"}},
	{ClothingHat, []string{"cap", "hat", "visor", "beanie", "キャップ", "ハット", "バイザー", "ニット帽", "帽"}},
	{ClothingGolfBall, []string{"golf ball", "ゴルフボール", "高尔夫球", "ボール"}},
	{ClothingGolfBag, []string{"caddie bag", "caddy bag", "cart bag", "stand bag", "キャディバッグ", "キャディーバッグ", "スタンドバッグ", "球包"}},
}

// DetermineClothingType 按关键词级联判定衣服分类，首个命中即返回
func DetermineClothingType(p *model.Product) string {
	text := strings.ToLower(p.ProductName + " " + p.Category + " " + p.DetailURL)

	for _, rule := range clothingRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.label
			}
		}
	}
	return ClothingOther
}

// taobaoCategoryMap 衣服分类 -> 淘宝面向类目
var taobaoCategoryMap = map[string]string{
	ClothingHoodie:   "卫衣",
	ClothingJacket:   "外套",
	ClothingVest:     "马甲",
	ClothingPolo:     "POLO",
	ClothingShortTee: "短袖",
	ClothingLongTee:  "长袖",
	ClothingTights:   "紧身衣裤",
	ClothingTraining: "训练服",
	ClothingShorts:   "短裤",
	ClothingPants:    "长裤",
	ClothingSkirt:    "短裙",
	ClothingBelt:     "腰带",
	ClothingSocks:    "袜子",
	ClothingGloves:   "手套",
	ClothingHat:      "帽子",
	ClothingGolfBall: "高尔夫球",
	ClothingGolfBag:  "球包",
	ClothingOther:    "其他",
}

// MapToTaobaoCategory 映射到淘宝面向类目
// 商品名含紧身/压缩/打底强制归入紧身衣裤，含训练强制归入训练服
func MapToTaobaoCategory(p *model.Product, clothingType string) string {
	name := p.ProductName
	switch {
	case strings.Contains(name, "紧身"), strings.Contains(name, "压缩"), strings.Contains(name, "打底"):
		return ClothingTights
	case strings.Contains(name, "训练"):
		return ClothingTraining
	}

	if label, ok := taobaoCategoryMap[clothingType]; ok {
		return label
	}
	return ClothingOther
}
