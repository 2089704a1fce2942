package ledger

import (
	"strings"

	"github.com/PabloGalante/threeway-relay/internal/domain"
)

const (
	truncateCap     = 200
	maxKeywords     = 10
	keywordsPerMsg  = 3
	minKeywordRunes = 5 // tokens shorter than this carry little topical signal
)

// Keyword tables are a replaceable policy, not a contract: the only guarantee
// is that identical input sequences produce identical context. Priority when
// classifying is debugging > coding > explanation; first match wins.
var (
	debuggingWords = []string{
		"error", "bug", "debug", "crash", "exception", "broken", "fail", "fix",
	}
	codingWords = []string{
		"code", "function", "class", "variable", "script", "program", "implement", "compile", "refactor",
	}
	explanationWords = []string{
		"what is", "how does", "explain", "why", "difference between", "mean",
	}
	questionWords = []string{
		"how ", "what", "why", "can you", "could you", "help",
	}
	stopWords = map[string]bool{
		"about": true, "after": true, "again": true, "around": true, "because": true,
		"before": true, "being": true, "could": true, "doing": true, "going": true,
		"having": true, "other": true, "really": true, "should": true, "their": true,
		"there": true, "these": true, "thing": true, "think": true, "those": true,
		"today": true, "where": true, "which": true, "while": true, "would": true,
		"hello": true, "please": true, "thanks": true, "right": true, "still": true,
	}
)

// extractor incrementally derives a compact conversation summary. It is a
// lossy heuristic: a best-effort signal for prompt assembly, nothing more.
// All updates happen under the owning Ledger's lock.
type extractor struct {
	category         domain.Category
	lastUserQuestion string
	lastPeerReply    string
	recentKeywords   []string
}

func (e *extractor) observe(msg *domain.Message) {
	lower := strings.ToLower(msg.Content)

	if cat, ok := classify(lower); ok {
		e.category = cat
	}

	if msg.Sender == domain.RolePhone && IsQuestion(msg.Content) {
		e.lastUserQuestion = truncate(msg.Content, truncateCap)
	}
	if msg.Sender == domain.RoleCursor {
		e.lastPeerReply = truncate(msg.Content, truncateCap)
	}

	added := 0
	for _, tok := range strings.Fields(lower) {
		if added == keywordsPerMsg {
			break
		}
		tok = strings.Trim(tok, ".,!?:;\"'()[]{}")
		if len([]rune(tok)) < minKeywordRunes || stopWords[tok] {
			continue
		}
		e.recentKeywords = append(e.recentKeywords, tok)
		added++
	}
	if len(e.recentKeywords) > maxKeywords {
		e.recentKeywords = e.recentKeywords[len(e.recentKeywords)-maxKeywords:]
	}
}

func (e *extractor) snapshot() domain.ConversationContext {
	kw := make([]string, len(e.recentKeywords))
	copy(kw, e.recentKeywords)

	cat := e.category
	if cat == "" {
		cat = domain.CategoryGeneral
	}

	return domain.ConversationContext{
		Category:         cat,
		LastUserQuestion: e.lastUserQuestion,
		LastPeerReply:    e.lastPeerReply,
		RecentKeywords:   kw,
	}
}

func classify(lower string) (domain.Category, bool) {
	if containsAny(lower, debuggingWords) {
		return domain.CategoryDebugging, true
	}
	if containsAny(lower, codingWords) {
		return domain.CategoryCoding, true
	}
	if containsAny(lower, explanationWords) {
		return domain.CategoryExplanation, true
	}
	return "", false
}

// IsQuestion reports whether content looks like it is asking for something.
func IsQuestion(content string) bool {
	if strings.Contains(content, "?") {
		return true
	}
	return containsAny(strings.ToLower(content), questionWords)
}

// DedupKeywords renders the keyword list as a set, preserving first-seen
// order. The extractor itself keeps duplicates; only display paths dedup.
func DedupKeywords(kw []string) []string {
	seen := make(map[string]bool, len(kw))
	out := make([]string, 0, len(kw))
	for _, k := range kw {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
