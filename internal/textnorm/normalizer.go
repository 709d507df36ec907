// Package textnorm 把原始简历/岗位文本转换为规范化文档: 统一Unicode、小写、分词、去停用词、词干化，
// 并统计 1~3 元短语。
package textnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"ats-match-go/internal/lexicon"
	"ats-match-go/internal/types"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxPhraseTokens 短语最大长度
const MaxPhraseTokens = 3

// Normalizer 文本规范化器，构造后只读，可并发使用
type Normalizer struct {
	lex     *lexicon.Lexicon
	markers [][]string        // 段落标记，按 token 切分
	canon   map[string]string // 规范化短语 -> 同义词组的规范短语
}

// New 基于词表创建规范化器
func New(lex *lexicon.Lexicon) *Normalizer {
	n := &Normalizer{
		lex:   lex,
		canon: make(map[string]string),
	}
	for _, m := range lex.SectionMarkers() {
		var words []string
		for _, tok := range scan(fold(m)) {
			words = append(words, tok.surface)
		}
		if len(words) > 0 {
			n.markers = append(n.markers, words)
		}
	}
	for _, g := range lex.SynonymGroups() {
		canonKey := n.Key(g.Canonical)
		if canonKey == "" {
			continue
		}
		if _, ok := n.canon[canonKey]; !ok {
			n.canon[canonKey] = canonKey
		}
		for _, alias := range g.Aliases {
			k := n.Key(alias)
			if k == "" {
				continue
			}
			if _, ok := n.canon[k]; !ok {
				n.canon[k] = canonKey
			}
		}
	}
	return n
}

// Lexicon 返回底层词表
func (n *Normalizer) Lexicon() *lexicon.Lexicon {
	return n.lex
}

// Normalize 生成规范化文档。空文本返回空文档，不会报错。
func (n *Normalizer) Normalize(kind types.DocumentKind, text string) *types.Document {
	sum := sha256.Sum256([]byte(text))
	doc := &types.Document{
		Kind:        kind,
		Raw:         text,
		ContentHash: hex.EncodeToString(sum[:]),
		Phrases:     make(map[string]*types.PhraseStat),
	}
	if strings.TrimSpace(text) == "" {
		return doc
	}

	raw := scan(fold(text))
	inSection := n.requirementContext(raw)

	var run []int // 当前连续片段在 doc.Tokens 中的下标
	var surfaces []string
	var sectionFlags []bool

	flush := func() {
		n.collectPhrases(doc, run, surfaces, sectionFlags)
		run, surfaces, sectionFlags = run[:0], surfaces[:0], sectionFlags[:0]
	}

	for i, tok := range raw {
		if tok.boundaryBefore {
			flush()
		}
		if !n.keep(tok.surface) {
			flush()
			continue
		}
		doc.Tokens = append(doc.Tokens, Stem(tok.surface))
		run = append(run, len(doc.Tokens)-1)
		surfaces = append(surfaces, tok.surface)
		sectionFlags = append(sectionFlags, inSection[i])
	}
	flush()
	return doc
}

func (n *Normalizer) collectPhrases(doc *types.Document, run []int, surfaces []string, section []bool) {
	for size := 1; size <= MaxPhraseTokens; size++ {
		for start := 0; start+size <= len(run); start++ {
			stems := make([]string, size)
			for j := 0; j < size; j++ {
				stems[j] = doc.Tokens[run[start+j]]
			}
			key := strings.Join(stems, " ")
			stat, ok := doc.Phrases[key]
			if !ok {
				stat = &types.PhraseStat{
					FirstIndex: run[start],
					Surface:    strings.Join(surfaces[start:start+size], " "),
					TokenCount: size,
				}
				doc.Phrases[key] = stat
			}
			stat.Count++
			for j := start; j < start+size; j++ {
				if section[j] {
					stat.SectionHits++
					break
				}
			}
		}
	}
}

// keep 过滤停用词、纯数字和不含字母的 token
func (n *Normalizer) keep(surface string) bool {
	if surface == "" || n.lex.IsStopWord(surface) {
		return false
	}
	for _, r := range surface {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Key 计算任意短语的规范化形式，与文档中的短语键一致
func (n *Normalizer) Key(phrase string) string {
	var stems []string
	for _, tok := range scan(fold(phrase)) {
		if n.keep(tok.surface) {
			stems = append(stems, Stem(tok.surface))
		}
	}
	return strings.Join(stems, " ")
}

// Tokens 返回文本规范化后的词干序列
func (n *Normalizer) Tokens(text string) []string {
	var stems []string
	for _, tok := range scan(fold(text)) {
		if n.keep(tok.surface) {
			stems = append(stems, Stem(tok.surface))
		}
	}
	return stems
}

// Canonical 返回短语所属同义词组的规范短语
func (n *Normalizer) Canonical(key string) (string, bool) {
	c, ok := n.canon[key]
	return c, ok
}

// requirementContext 标记每个 token 是否处于"任职要求"上下文:
// 所在句子包含段落标记，或位于包含标记的标题行之下直到下一个标题。
func (n *Normalizer) requirementContext(raw []rawToken) []bool {
	flags := make([]bool, len(raw))
	if len(n.markers) == 0 || len(raw) == 0 {
		return flags
	}

	sentenceHit := make(map[int]bool)
	lineHasMarker := make(map[int]bool)
	for i := range raw {
		for _, m := range n.markers {
			if matchAt(raw, i, m) {
				sentenceHit[raw[i].sentence] = true
				lineHasMarker[raw[i].line] = true
			}
		}
	}

	lineWords := make(map[int]int)
	lineColon := make(map[int]bool)
	for _, tok := range raw {
		lineWords[tok.line]++
		if tok.headingColon {
			lineColon[tok.line] = true
		}
	}

	inSection := false
	currentLine := -1
	for i, tok := range raw {
		if tok.line != currentLine {
			currentLine = tok.line
			isHeading := lineColon[tok.line] || (lineHasMarker[tok.line] && lineWords[tok.line] <= 6)
			if isHeading {
				inSection = lineHasMarker[tok.line]
			}
		}
		flags[i] = inSection || sentenceHit[tok.sentence]
	}
	return flags
}

func matchAt(raw []rawToken, i int, marker []string) bool {
	if i+len(marker) > len(raw) {
		return false
	}
	for j, w := range marker {
		if raw[i+j].surface != w || raw[i+j].sentence != raw[i].sentence {
			return false
		}
	}
	return true
}

// Stem 对单个小写 token 词干化；短 token 和包含非字母字符的 token 原样返回
func Stem(token string) string {
	if len([]rune(token)) <= 3 {
		return token
	}
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return token
		}
	}
	return english.Stem(token, false)
}

// fold 去除重音符号并统一为 NFC 小写形式
func fold(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		out = text
	}
	return strings.ToLower(out)
}
