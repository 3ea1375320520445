package utils

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"去末尾斜杠", "https://store.descente.co.jp/commodity/SDSC0140D/LE1872EM012989/", "https://store.descente.co.jp/commodity/SDSC0140D/LE1872EM012989"},
		{"http升级https", "http://example.com/p/1", "https://example.com/p/1"},
		{"去首尾空白", "  https://example.com/p/1  ", "https://example.com/p/1"},
		{"空串", "", ""},
		{"多重斜杠全部去掉", "https://example.com/p/1///", "https://example.com/p/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeURL(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
			// 幂等性
			if again := NormalizeURL(got); again != got {
				t.Errorf("NormalizeURL 不幂等: %q -> %q", got, again)
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	in := `<div><p>吸汗速乾の<b>ポロシャツ</b>。</p>  <p>ストレッチ素材。</p></div>`
	got := StripHTML(in)
	if got != "吸汗速乾のポロシャツ。 ストレッチ素材。" {
		t.Errorf("StripHTML() = %q", got)
	}

	// 非 HTML 输入原样折叠空白
	if got := StripHTML("a\n\n b"); got != "a b" {
		t.Errorf("纯文本折叠失败: %q", got)
	}
}

func TestFoldWidth(t *testing.T) {
	if got := FoldWidth("ＬＬ"); got != "LL" {
		t.Errorf("FoldWidth(ＬＬ) = %q", got)
	}
	if got := FoldWidth("１９，８００"); got != "19,800" {
		t.Errorf("FoldWidth(１９，８００) = %q", got)
	}
}

func TestContainsKana(t *testing.T) {
	if !ContainsKana("25秋冬ゴルフ外套") {
		t.Error("片假名未检出")
	}
	if !ContainsKana("さらさら素材") {
		t.Error("平假名未检出")
	}
	if ContainsKana("25秋冬卡拉威Callaway高尔夫男士外套") {
		t.Error("纯中英文误报假名")
	}
}

func TestContentKey(t *testing.T) {
	k1 := ContentKey("P1", "desc")
	k2 := ContentKey("P1", "desc")
	k3 := ContentKey("P2", "desc")
	if k1 != k2 {
		t.Error("同输入键不稳定")
	}
	if k1 == k3 {
		t.Error("不同商品键冲突")
	}
	if len(k1) != 64 {
		t.Errorf("键长度 = %d, want 64", len(k1))
	}
}
