package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/model"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/internal/normalize"
	"github.com/sanshui-123/shagnpinzhuaqu-sub000/pkg/utils"
)

// ==================== 服务 ====================

// TitleService 商品标题生成
// 文法: [季节][品牌简称]高尔夫[性别][特征词][品类尾缀]，长度 26-30 字
type TitleService struct {
	glm *GLMService

	// 当前时间来源，测试中固定
	now func() time.Time
}

// NewTitleService 创建标题生成服务
func NewTitleService(glm *GLMService) *TitleService {
	return &TitleService{
		glm: glm,
		now: time.Now,
	}
}

// ==================== 词表 ====================

// 品类尾缀封闭集合之外的分类回退到外套
var tailCategoryMap = map[string]string{
	normalize.ClothingHoodie:   "卫衣",
	normalize.ClothingJacket:   "外套",
	normalize.ClothingVest:     "马甲",
	normalize.ClothingPolo:     "POLO衫",
	normalize.ClothingShortTee: "短袖",
	normalize.ClothingLongTee:  "长袖",
	normalize.ClothingTights:   "长裤",
	normalize.ClothingTraining: "长袖",
	normalize.ClothingShorts:   "短裤",
	normalize.ClothingPants:    "长裤",
	normalize.ClothingSkirt:    "短裙",
	normalize.ClothingGloves:   "手套",
	normalize.ClothingHat:      "帽子",
	normalize.ClothingGolfBall: "高尔夫球",
	normalize.ClothingGolfBag:  "球包",
}

const tailCategoryFallback = "外套"

// featureRule 特征词及其在日文/英文商品文案中的触发词
type featureRule struct {
	feature  string
	keywords []string
}

var featureRules = []featureRule{
	{"保暖", []string{"保暖", "保温", "裏起毛", "中綿", "ダウン", "warm", "thermal"}},
	{"防水", []string{"防水", "撥水", "耐水", "waterproof", "water repellent"}},
	{"透气", []string{"透气", "透湿", "通気", "breathable", "メッシュ"}},
	{"轻量", []string{"轻量", "軽量", "軽い", "lightweight", "ライト"}},
	{"弹力", []string{"弹力", "ストレッチ", "伸縮", "stretch"}},
	{"抓绒", []string{"抓绒", "フリース", "fleece", "起毛"}},
	{"速干", []string{"速干", "速乾", "吸汗速乾", "quick dry", "ドライ"}},
	{"防风", []string{"防风", "防風", "ウインド", "ウィンド", "windproof"}},
	{"舒适", []string{"舒适", "快適", "comfort"}},
	{"抗皱", []string{"抗皱", "防シワ", "イージーケア", "wrinkle"}},
	{"耐磨", []string{"耐磨", "耐久", "durable"}},
}

var forbiddenWords = []string{
	"官网", "正品", "专柜", "代购", "海外", "进口", "授权",
	"旗舰", "限量", "促销", "特价", "淘宝", "天猫", "京东", "拼多多",
}

var titleFillers = []string{"时尚", "舒适", "畅销", "精选", "运动", "休闲", "百搭", "新款"}

// ==================== 标题特征 ====================

// TitleFeatures 确定性抽取的标题构件
type TitleFeatures struct {
	Season     string // 如 "25秋冬"
	Brand      string // 品牌简称，如 "卡拉威Callaway"
	GenderText string // 男士/女士/空
	Features   []string
	Tail       string
}

var (
	seasonCodePattern = regexp.MustCompile(`(?i)(?:20)?(\d{2})\s*(FW|AW|SS|SP)`)
	seasonCNPattern   = regexp.MustCompile(`(?:20)?(\d{2})\s*(秋冬|春夏)`)
)

// ExtractSeason 从商品名提取季节短语，提取不到按当前日期兜底
func ExtractSeason(name string, now time.Time) string {
	if m := seasonCodePattern.FindStringSubmatch(name); m != nil {
		phrase := "秋冬"
		switch strings.ToUpper(m[2]) {
		case "SS", "SP":
			phrase = "春夏"
		}
		return m[1] + phrase
	}
	if m := seasonCNPattern.FindStringSubmatch(name); m != nil {
		return m[1] + m[2]
	}

	year := now.Year() % 100
	if m := now.Month(); m >= time.March && m <= time.August {
		return fmt.Sprintf("%02d春夏", year)
	}
	return fmt.Sprintf("%02d秋冬", year)
}

// ExtractFeatures 从商品名和描述中抽取至多 2 个特征词
func ExtractFeatures(text string) []string {
	lower := strings.ToLower(utils.FoldWidth(text))
	var features []string
	for _, rule := range featureRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				features = append(features, rule.feature)
				break
			}
		}
		if len(features) == 2 {
			break
		}
	}
	return features
}

// TailCategory 衣服分类映射到标题尾缀
func TailCategory(clothingType string) string {
	if tail, ok := tailCategoryMap[clothingType]; ok {
		return tail
	}
	return tailCategoryFallback
}

func genderText(gender string) string {
	switch gender {
	case normalize.GenderMale:
		return "男士"
	case normalize.GenderFemale:
		return "女士"
	default:
		return ""
	}
}

// BuildFeatures 汇总一个商品的全部标题构件
func (s *TitleService) BuildFeatures(p *model.Product) TitleFeatures {
	return TitleFeatures{
		Season:     ExtractSeason(p.ProductName, s.now()),
		Brand:      normalize.BrandShortName(p.Brand),
		GenderText: genderText(normalize.DetermineGender(p)),
		Features:   ExtractFeatures(p.ProductName + " " + p.Description),
		Tail:       TailCategory(normalize.DetermineClothingType(p)),
	}
}

// ==================== 生成 ====================

// Generate 生成商品标题
// GLM 两次机会，均不合格则退回模板拼装，标题恒非空；
// 返回的 error 仅表示走了模板兜底，调用方照常使用标题
func (s *TitleService) Generate(ctx context.Context, p *model.Product) (string, error) {
	feats := s.BuildFeatures(p)
	prompt := buildTitlePrompt(p, feats)

	for attempt := 0; attempt < 2; attempt++ {
		raw, err := s.glm.Chat(ctx, prompt, ChatOptions{
			Temperature: 0.3,
			MaxTokens:   500,
			CallType:    model.GLMCallTypeTitle,
			ProductID:   p.ProductID,
		})
		if err != nil {
			log.Printf("[Title] %s GLM 调用失败: %v", p.ProductID, err)
			break
		}
		title := CleanTitle(raw)
		if ValidateTitle(title, feats.Brand) {
			return title, nil
		}
		log.Printf("[Title] %s 生成结果不合格，重试: %q", p.ProductID, title)
	}

	title := TemplateTitle(feats)
	log.Printf("[Title] %s 使用模板标题: %s", p.ProductID, title)
	return title, fmt.Errorf("标题生成未通过校验，已用模板兜底: %s", p.ProductID)
}

func buildTitlePrompt(p *model.Product, feats TitleFeatures) string {
	var sb strings.Builder
	sb.WriteString("你是淘宝高尔夫服饰运营，为下面的日本商品写一个中文标题。\n\n")
	sb.WriteString(fmt.Sprintf("商品名: %s\n", p.ProductName))
	sb.WriteString(fmt.Sprintf("季节: %s\n", feats.Season))
	sb.WriteString(fmt.Sprintf("品牌: %s\n", feats.Brand))
	if feats.GenderText != "" {
		sb.WriteString(fmt.Sprintf("性别: %s\n", feats.GenderText))
	}
	if len(feats.Features) > 0 {
		sb.WriteString(fmt.Sprintf("卖点: %s\n", strings.Join(feats.Features, "、")))
	}
	sb.WriteString(fmt.Sprintf("品类: %s\n", feats.Tail))
	sb.WriteString("\n硬性要求:\n")
	sb.WriteString("1. 格式: [季节][品牌]高尔夫[性别][卖点][品类]\n")
	sb.WriteString("2. 长度 26-30 个字符\n")
	sb.WriteString(fmt.Sprintf("3. 必须包含\"高尔夫\"且只出现一次，必须包含\"%s\"\n", feats.Brand))
	sb.WriteString(fmt.Sprintf("4. 禁止出现: %s\n", strings.Join(forbiddenWords, "、")))
	sb.WriteString("5. 禁止日文假名，禁止重复堆砌词语\n")
	sb.WriteString("\n只输出标题本身，不要解释。")
	return sb.String()
}

// ==================== 清洗与校验 ====================

var titleStripPattern = regexp.MustCompile("[\"'“”「」『』《》*#`，。！？!?,.、：:；;\\s]")

// CleanTitle 去掉引号、标点、markdown 残留
func CleanTitle(raw string) string {
	s := strings.TrimSpace(raw)
	// 多行输出时取第一行非空内容
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			s = line
			break
		}
	}
	s = strings.TrimPrefix(s, "标题")
	return titleStripPattern.ReplaceAllString(s, "")
}

// ValidateTitle 标题合格判定
func ValidateTitle(title, brandShort string) bool {
	n := utils.RuneLen(title)
	if n < 26 || n > 30 {
		return false
	}
	if strings.Count(title, "高尔夫") != 1 {
		return false
	}
	if brandShort != "" && !strings.Contains(title, brandShort) {
		return false
	}
	for _, w := range forbiddenWords {
		if strings.Contains(title, w) {
			return false
		}
	}
	if utils.ContainsKana(title) {
		return false
	}
	if hasTripleRepeat(title) {
		return false
	}
	if hasRepeatedBigram(title) {
		return false
	}
	return true
}

// 同一字符连续出现 3 次
func hasTripleRepeat(s string) bool {
	runes := []rune(s)
	for i := 2; i < len(runes); i++ {
		if runes[i] == runes[i-1] && runes[i] == runes[i-2] {
			return true
		}
	}
	return false
}

// 同一个二字词组出现 3 次以上
func hasRepeatedBigram(s string) bool {
	runes := []rune(s)
	counts := make(map[string]int)
	for i := 0; i+1 < len(runes); i++ {
		bigram := string(runes[i : i+2])
		counts[bigram]++
		if counts[bigram] >= 3 {
			return true
		}
	}
	return false
}

// ==================== 模板兜底 ====================

// TemplateTitle 确定性拼装标题，填充或截断到 [26,30]
func TemplateTitle(feats TitleFeatures) string {
	// 品牌兜底词自带"高尔夫"时不再重复插入
	core := feats.Brand + "高尔夫"
	if strings.Contains(feats.Brand, "高尔夫") {
		core = feats.Brand
	}
	assemble := func(features []string) string {
		return feats.Season + core + feats.GenderText +
			strings.Join(features, "") + feats.Tail
	}

	features := append([]string{}, feats.Features...)
	title := assemble(features)

	// 不足 26 字时用填充词补齐
	for _, filler := range titleFillers {
		if utils.RuneLen(title) >= 26 {
			break
		}
		if strings.Contains(title, filler) {
			continue
		}
		features = append(features, filler)
		title = assemble(features)
	}

	// 超出 30 字时先去掉特征词，仍超则硬截断
	for utils.RuneLen(title) > 30 && len(features) > 0 {
		features = features[:len(features)-1]
		title = assemble(features)
	}
	if runes := []rune(title); len(runes) > 30 {
		title = string(runes[:30])
	}
	return title
}
