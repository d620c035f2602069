package keyword

import "testing"

func TestContainsMatch(t *testing.T) {
	m := New(Config{Keywords: []string{"退款", "投诉"}})

	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"我要退款", "退款", true},
		{"我要投诉这个订单", "投诉", true},
		{"普通聊天内容", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := m.Check(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Check(%q) = (%q, %v), want (%q, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestContainsFirstKeywordWins(t *testing.T) {
	m := New(Config{Keywords: []string{"订单", "退款"}})
	got, ok := m.Check("这个退款订单有问题")
	if !ok || got != "订单" {
		t.Fatalf("expected first configured keyword to win, got %q ok=%v", got, ok)
	}
}

func TestOCRTolerantMatch(t *testing.T) {
	m := New(Config{Keywords: []string{"退款"}})

	// Whitespace injected by OCR line segmentation.
	if got, ok := m.Check("我要退 款"); !ok || got != "退款" {
		t.Fatalf("space-damaged text should match, got %q ok=%v", got, ok)
	}
	// 款 misread as the visually similar 欵.
	if got, ok := m.Check("我要退欵"); !ok || got != "退款" {
		t.Fatalf("confusable-damaged text should match, got %q ok=%v", got, ok)
	}
	// Both at once.
	if _, ok := m.Check("我 要 退 欵"); !ok {
		t.Fatalf("combined OCR damage should still match")
	}
}

func TestExactMatch(t *testing.T) {
	m := New(Config{Keywords: []string{"refund"}, Mode: ModeExact})
	if _, ok := m.Check("refund please"); ok {
		t.Fatalf("exact mode must not match substrings")
	}
	if _, ok := m.Check("refund"); !ok {
		t.Fatalf("exact mode should match full equality")
	}
	if _, ok := m.Check("REFUND"); !ok {
		t.Fatalf("exact mode is case-insensitive by default")
	}
}

func TestCaseSensitivity(t *testing.T) {
	insensitive := New(Config{Keywords: []string{"Refund"}})
	if _, ok := insensitive.Check("please refund me"); !ok {
		t.Fatalf("case-insensitive matcher should match lowercased text")
	}

	sensitive := New(Config{Keywords: []string{"Refund"}, CaseSensitive: true})
	if _, ok := sensitive.Check("please refund me"); ok {
		t.Fatalf("case-sensitive matcher must not fold case")
	}
	if _, ok := sensitive.Check("please Refund me"); !ok {
		t.Fatalf("case-sensitive matcher should match exact casing")
	}
}

func TestFuzzyMatch(t *testing.T) {
	m := New(Config{Keywords: []string{"refund"}, Mode: ModeFuzzy, FuzzyThreshold: 0.7})

	// One substitution away from the keyword.
	if got, ok := m.Check("refunt"); !ok || got != "refund" {
		t.Fatalf("near-miss should pass the similarity threshold, got %q ok=%v", got, ok)
	}
	// Plain containment also matches in fuzzy mode.
	if _, ok := m.Check("need a refund now"); !ok {
		t.Fatalf("fuzzy mode should still honor containment")
	}
	if _, ok := m.Check("completely unrelated"); ok {
		t.Fatalf("dissimilar text must not match")
	}
}

func TestCheckDeterministic(t *testing.T) {
	m := New(Config{Keywords: []string{"退款", "refund"}, Mode: ModeFuzzy})
	first, okFirst := m.Check("我要退款")
	for i := 0; i < 100; i++ {
		got, ok := m.Check("我要退款")
		if got != first || ok != okFirst {
			t.Fatalf("iteration %d: Check diverged: (%q,%v) vs (%q,%v)", i, got, ok, first, okFirst)
		}
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"contain":  ModeContains,
		"contains": ModeContains,
		"CONTAINS": ModeContains,
		"exact":    ModeExact,
		"fuzzy":    ModeFuzzy,
		"":         ModeContains,
		"garbage":  ModeContains,
	}
	for in, want := range cases {
		if got := ParseMode(in); got != want {
			t.Fatalf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
}
