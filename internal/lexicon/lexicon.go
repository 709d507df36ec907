// Package lexicon 加载匹配引擎使用的静态词表: 停用词、招聘套话、段落标记、同义词组和学习资源。
// 词表在启动时加载并校验，之后只读。
package lexicon

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed data/stopwords.yaml
	defaultStopwords []byte
	//go:embed data/synonyms.yaml
	defaultSynonyms []byte
	//go:embed data/resources.yaml
	defaultResources []byte
)

// ErrInvalidLexicon 词表内容不合法
var ErrInvalidLexicon = errors.New("词表配置不合法")

// ValidationError 词表校验失败的详细信息
type ValidationError struct {
	Source string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (来源:%s): %s", ErrInvalidLexicon, e.Source, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidLexicon
}

func invalid(source, format string, args ...any) error {
	return &ValidationError{Source: source, Detail: fmt.Sprintf(format, args...)}
}

// Files 可选的外部词表文件，为空时使用内置默认值
type Files struct {
	StopwordsFile string `yaml:"stopwords_file"`
	SynonymsFile  string `yaml:"synonyms_file"`
	ResourcesFile string `yaml:"resources_file"`
}

// SynonymGroup 一组可互换的技能写法
type SynonymGroup struct {
	Canonical string   `yaml:"canonical"`
	Aliases   []string `yaml:"aliases"`
}

type stopwordsFile struct {
	StopWords      []string `yaml:"stop_words"`
	FillerWords    []string `yaml:"filler_words"`
	SectionMarkers []string `yaml:"section_markers"`
}

type synonymsFile struct {
	Groups []SynonymGroup `yaml:"groups"`
}

type resourcesFile struct {
	Resources map[string][]string `yaml:"resources"`
}

// Lexicon 只读词表
type Lexicon struct {
	stopWords      map[string]struct{}
	sectionMarkers []string
	groups         []SynonymGroup
	resources      map[string][]string
	fingerprint    string
}

// Default 使用内置词表
func Default() (*Lexicon, error) {
	return Load(Files{})
}

// Load 按 Files 加载词表，未指定的部分回退到内置默认值
func Load(files Files) (*Lexicon, error) {
	stopData, stopSrc, err := readOrDefault(files.StopwordsFile, defaultStopwords, "stopwords")
	if err != nil {
		return nil, err
	}
	synData, synSrc, err := readOrDefault(files.SynonymsFile, defaultSynonyms, "synonyms")
	if err != nil {
		return nil, err
	}
	resData, resSrc, err := readOrDefault(files.ResourcesFile, defaultResources, "resources")
	if err != nil {
		return nil, err
	}
	return Parse(stopData, synData, resData, stopSrc, synSrc, resSrc)
}

func readOrDefault(path string, fallback []byte, name string) ([]byte, string, error) {
	if path == "" {
		return fallback, "builtin:" + name, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, invalid(path, "读取文件失败: %v", err)
	}
	return data, path, nil
}

// Parse 从原始 YAML 构建词表。sources 依次为三个文件的来源描述，用于错误信息。
func Parse(stopData, synData, resData []byte, sources ...string) (*Lexicon, error) {
	src := func(i string, idx int) string {
		if idx < len(sources) {
			return sources[idx]
		}
		return i
	}

	var sw stopwordsFile
	if err := yaml.Unmarshal(stopData, &sw); err != nil {
		return nil, invalid(src("stopwords", 0), "解析YAML失败: %v", err)
	}
	var syn synonymsFile
	if err := yaml.Unmarshal(synData, &syn); err != nil {
		return nil, invalid(src("synonyms", 1), "解析YAML失败: %v", err)
	}
	var res resourcesFile
	if err := yaml.Unmarshal(resData, &res); err != nil {
		return nil, invalid(src("resources", 2), "解析YAML失败: %v", err)
	}

	lex := &Lexicon{
		stopWords: make(map[string]struct{}, len(sw.StopWords)+len(sw.FillerWords)),
		resources: make(map[string][]string, len(res.Resources)),
	}
	lex.fingerprint = fingerprint(stopData, synData, resData)

	if len(sw.StopWords) == 0 {
		return nil, invalid(src("stopwords", 0), "stop_words 不能为空")
	}
	for _, w := range append(append([]string{}, sw.StopWords...), sw.FillerWords...) {
		w = clean(w)
		if w == "" {
			continue
		}
		lex.stopWords[w] = struct{}{}
	}
	for _, m := range sw.SectionMarkers {
		if m = clean(m); m != "" {
			lex.sectionMarkers = append(lex.sectionMarkers, m)
		}
	}

	owner := make(map[string]string)
	for i, g := range syn.Groups {
		canonical := clean(g.Canonical)
		if canonical == "" {
			return nil, invalid(src("synonyms", 1), "第%d个同义词组缺少 canonical", i+1)
		}
		group := SynonymGroup{Canonical: canonical}
		for _, form := range append([]string{canonical}, g.Aliases...) {
			form = clean(form)
			if form == "" {
				continue
			}
			if prev, ok := owner[form]; ok && prev != canonical {
				return nil, invalid(src("synonyms", 1), "写法 %q 同时属于 %q 和 %q", form, prev, canonical)
			}
			if _, ok := owner[form]; ok {
				continue
			}
			owner[form] = canonical
			if form != canonical {
				group.Aliases = append(group.Aliases, form)
			}
		}
		lex.groups = append(lex.groups, group)
	}

	for key, list := range res.Resources {
		k := clean(key)
		if k == "" {
			return nil, invalid(src("resources", 2), "资源表中存在空关键词")
		}
		var items []string
		for _, r := range list {
			if r = strings.TrimSpace(r); r != "" {
				items = append(items, r)
			}
		}
		if len(items) == 0 {
			return nil, invalid(src("resources", 2), "关键词 %q 的资源列表为空", key)
		}
		lex.resources[k] = items
	}

	return lex, nil
}

// fingerprint 三个词表文件内容的哈希，任一文件变化都会改变
func fingerprint(parts ...[]byte) string {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.Write(p)
		_, _ = d.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", d.Sum64())[:8]
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsStopWord 判断小写 token 是否为停用词或招聘套话
func (l *Lexicon) IsStopWord(token string) bool {
	_, ok := l.stopWords[token]
	return ok
}

// SectionMarkers 段落标记短语(小写)
func (l *Lexicon) SectionMarkers() []string {
	return append([]string(nil), l.sectionMarkers...)
}

// SynonymGroups 同义词组
func (l *Lexicon) SynonymGroups() []SynonymGroup {
	out := make([]SynonymGroup, len(l.groups))
	copy(out, l.groups)
	return out
}

// ResourceKeys 资源表中的全部关键词，按字典序
func (l *Lexicon) ResourceKeys() []string {
	keys := make([]string, 0, len(l.resources))
	for k := range l.resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resources 返回关键词的学习资源(原始写法)
func (l *Lexicon) Resources(key string) []string {
	return append([]string(nil), l.resources[clean(key)]...)
}

// Fingerprint 词表内容指纹，用于区分不同词表下计算出的向量
func (l *Lexicon) Fingerprint() string {
	return l.fingerprint
}

// Stats 词表规模，用于启动日志
func (l *Lexicon) Stats() (stopWords, synonymGroups, resources int) {
	return len(l.stopWords), len(l.groups), len(l.resources)
}
