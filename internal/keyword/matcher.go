// Package keyword evaluates message text against a configured keyword set.
package keyword

import (
	"strings"

	"github.com/xrash/smetrics"
)

// Mode selects how keywords are tested against text.
type Mode string

const (
	// ModeContains matches when the keyword is a substring of the text.
	// OCR-damaged text gets a second chance through a normalization pass
	// (whitespace stripped, visually-confusable characters remapped).
	ModeContains Mode = "contains"
	// ModeExact matches on full-string equality.
	ModeExact Mode = "exact"
	// ModeFuzzy matches when the edit-distance similarity ratio reaches the
	// configured threshold, or when plain containment matches.
	ModeFuzzy Mode = "fuzzy"
)

// ParseMode normalizes a configured mode string. The original config format
// used "contain"; both spellings are accepted. Unknown values fall back to
// ModeContains.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return ModeExact
	case "fuzzy":
		return ModeFuzzy
	case "contain", "contains", "":
		return ModeContains
	default:
		return ModeContains
	}
}

// ocrConfusables maps characters that OCR engines commonly misread for
// visually similar ones in chat screenshots (e.g. 欵 for the 款 in 退款).
// Applied to whitespace-stripped text before re-testing containment.
var ocrConfusables = strings.NewReplacer(
	"欵", "款",
	"吿", "告",
	"訴", "诉",
	"単", "单",
	"扴", "打",
	"収", "收",
	"発", "发",
	"貨", "货",
	"価", "价",
	"扱", "投",
)

// Config controls matching behavior.
type Config struct {
	Keywords       []string
	Mode           Mode
	CaseSensitive  bool
	FuzzyThreshold float64 // 0..1, ModeFuzzy only; defaults to 0.7
}

// Matcher checks text against a fixed keyword list.
//
// Check is deterministic and read-only after construction; a Matcher may be
// shared by concurrent readers. The first keyword (in configured order) that
// matches wins; there is no scoring across keywords.
type Matcher struct {
	keywords []string // original casing, returned on match
	folded   []string // case-folded when insensitive
	mode     Mode
	caseSens bool
	fuzzyMin float64
}

func New(cfg Config) *Matcher {
	m := &Matcher{
		keywords: append([]string(nil), cfg.Keywords...),
		mode:     cfg.Mode,
		caseSens: cfg.CaseSensitive,
		fuzzyMin: cfg.FuzzyThreshold,
	}
	if m.mode == "" {
		m.mode = ModeContains
	}
	if m.fuzzyMin <= 0 || m.fuzzyMin > 1 {
		m.fuzzyMin = 0.7
	}
	m.folded = make([]string, len(m.keywords))
	for i, kw := range m.keywords {
		if m.caseSens {
			m.folded[i] = kw
		} else {
			m.folded[i] = strings.ToLower(kw)
		}
	}
	return m
}

// Keywords returns the configured keyword list in order.
func (m *Matcher) Keywords() []string {
	return append([]string(nil), m.keywords...)
}

// Check returns the first configured keyword matching text.
// Empty text never matches.
func (m *Matcher) Check(text string) (string, bool) {
	if text == "" || len(m.keywords) == 0 {
		return "", false
	}

	checkText := text
	if !m.caseSens {
		checkText = strings.ToLower(text)
	}

	for i, kw := range m.folded {
		switch m.mode {
		case ModeExact:
			if checkText == kw {
				return m.keywords[i], true
			}
		case ModeFuzzy:
			if m.ratio(checkText, kw) >= m.fuzzyMin {
				return m.keywords[i], true
			}
			if strings.Contains(checkText, kw) {
				return m.keywords[i], true
			}
		default: // ModeContains
			if strings.Contains(checkText, kw) {
				return m.keywords[i], true
			}
			if ocrTolerantContains(checkText, kw) {
				return m.keywords[i], true
			}
		}
	}
	return "", false
}

// ocrTolerantContains strips whitespace from both sides, then additionally
// remaps confusable characters in the text, re-testing containment each time.
func ocrTolerantContains(text, kw string) bool {
	textFlat := stripSpace(text)
	kwFlat := stripSpace(kw)
	if kwFlat == "" {
		return false
	}
	if strings.Contains(textFlat, kwFlat) {
		return true
	}
	return strings.Contains(ocrConfusables.Replace(textFlat), kwFlat)
}

func stripSpace(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "\n", "")
}

// ratio is an edit-distance similarity in [0,1]: 1 minus the Wagner-Fischer
// distance normalized by the longer input's length.
func (m *Matcher) ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 1)
	r := 1 - float64(dist)/float64(longest)
	if r < 0 {
		return 0
	}
	return r
}
