package textnorm

import (
	"strings"
	"unicode"
)

// rawToken 分词结果，surface 为小写原始写法
type rawToken struct {
	surface        string
	sentence       int
	line           int
	boundaryBefore bool // 与前一个 token 之间有子句分隔
	headingColon   bool // 所在行以冒号结尾
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isJoiner 两侧都是字母数字时不切分: node.js, front-end, company's
func isJoiner(r rune) bool {
	return r == '.' || r == '-' || r == '\'' || r == '’'
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == ';' || r == '\n'
}

// scan 对已折叠的小写文本分词。保留 c++、c#、node.js 这类技术写法。
func scan(text string) []rawToken {
	lines := strings.Split(text, "\n")
	colon := make([]bool, len(lines))
	for i, l := range lines {
		colon[i] = strings.HasSuffix(strings.TrimSpace(l), ":")
	}

	rs := []rune(text)
	var (
		out      []rawToken
		buf      []rune
		sentence int
		line     int
		boundary bool
	)

	emit := func() {
		if len(buf) == 0 {
			return
		}
		surface := cleanToken(string(buf))
		buf = buf[:0]
		if surface == "" {
			boundary = true
			return
		}
		out = append(out, rawToken{
			surface:        surface,
			sentence:       sentence,
			line:           line,
			boundaryBefore: boundary,
			headingColon:   colon[line],
		})
		boundary = false
	}

	for i, r := range rs {
		switch {
		case isWordRune(r):
			buf = append(buf, r)
		case r == '+' || r == '#':
			// 只挂在词后面: c++, c#, f#
			if len(buf) > 0 {
				buf = append(buf, r)
			} else {
				emit()
				boundary = true
			}
		case isJoiner(r) && len(buf) > 0 && isWordRune(buf[len(buf)-1]) && i+1 < len(rs) && isWordRune(rs[i+1]):
			buf = append(buf, r)
		case unicode.IsSpace(r) && r != '\n':
			emit()
		default:
			emit()
			boundary = true
			if isSentenceEnd(r) {
				sentence++
			}
			if r == '\n' {
				line++
			}
		}
	}
	emit()
	return out
}

// cleanToken 去掉所有格/缩写后缀，例如 company's -> company, we're -> we
func cleanToken(tok string) string {
	if idx := strings.IndexAny(tok, "'’"); idx >= 0 {
		tok = tok[:idx]
	}
	return strings.TrimLeft(tok, "+#")
}
