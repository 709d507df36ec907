package types

import "time"

// DocumentKind 文档类型
type DocumentKind string

const (
	// KindResume 简历
	KindResume DocumentKind = "resume"
	// KindJob 岗位描述
	KindJob DocumentKind = "job"
)

// PhraseStat 记录某个规范化短语在文档中的出现情况
type PhraseStat struct {
	Count       int    // 出现次数
	FirstIndex  int    // 首次出现的 token 位置
	Surface     string // 首次出现时的原始(小写)写法
	SectionHits int    // 落在"任职要求"上下文中的次数
	TokenCount  int    // 短语包含的 token 数
}

// Document 规范化之后的文档，创建后只读
type Document struct {
	Kind        DocumentKind
	Raw         string
	ContentHash string
	Tokens      []string               // 词干化后的 token 序列
	Phrases     map[string]*PhraseStat // 规范化短语 -> 统计
}

// IsEmpty 文档中没有任何有效 token
func (d *Document) IsEmpty() bool {
	return d == nil || len(d.Tokens) == 0
}

// Keyword 从岗位描述中提取的关键词
type Keyword struct {
	Normalized string   `json:"normalized"`
	Display    string   `json:"display"`
	Surfaces   []string `json:"surfaces,omitempty"`
	Weight     float64  `json:"weight"`
	Required   bool     `json:"required"`
	FirstIndex int      `json:"-"`
	Forms      []string `json:"-"` // 合并进来的全部规范化写法(含同义词)
	TokenCount int      `json:"-"`
}

// MatchType 关键词命中方式
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchSynonym MatchType = "synonym"
	MatchStem    MatchType = "stem"
	MatchFuzzy   MatchType = "fuzzy"
)

// KeywordMatch 单个关键词的匹配结果
type KeywordMatch struct {
	Keyword   Keyword
	Matched   bool
	MatchType MatchType
	Frequency int // 在简历中的出现次数，未命中为0
}

// KeywordAnalysis 关键词分析结果
type KeywordAnalysis struct {
	Entries          []KeywordMatch `json:"-"`
	Matching         []string       `json:"matching_keywords"`
	Missing          []string       `json:"missing_keywords"`
	Density          map[string]int `json:"keyword_density"`
	TotalJobKeywords int            `json:"total_job_keywords"`
	TotalMatched     int            `json:"total_matched"`
	MatchPercentage  float64        `json:"match_percentage"`
}

// EmptyKeywordAnalysis 返回一个字段都已初始化的空分析，保证 JSON 输出为 [] 和 {}
func EmptyKeywordAnalysis() *KeywordAnalysis {
	return &KeywordAnalysis{
		Matching: []string{},
		Missing:  []string{},
		Density:  map[string]int{},
	}
}

// UnmatchedEntries 返回所有未命中的条目
func (a *KeywordAnalysis) UnmatchedEntries() []KeywordMatch {
	var out []KeywordMatch
	for _, e := range a.Entries {
		if !e.Matched {
			out = append(out, e)
		}
	}
	return out
}

// ScoreBreakdown 分项得分
type ScoreBreakdown struct {
	SkillMatch          float64 `json:"skill_match"`
	SemanticSimilarity  float64 `json:"semantic_similarity"`
	KeywordDensityBonus float64 `json:"keyword_density_bonus"`
}

// ATSStatus 评级
type ATSStatus struct {
	Level string `json:"level"`
	Label string `json:"label"`
}

// Importance 技能缺口重要程度
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// SkillGap 未命中的必备关键词及学习资源
type SkillGap struct {
	Skill      string     `json:"skill"`
	Importance Importance `json:"importance"`
	Resources  []string   `json:"resources"`
	Weight     float64    `json:"-"`
}

// MatchResult 一次匹配分析的完整输出
type MatchResult struct {
	Score             int              `json:"score"`
	Summary           string           `json:"summary"`
	ATSStatus         ATSStatus        `json:"ats_status"`
	ScoreBreakdown    ScoreBreakdown   `json:"score_breakdown"`
	KeywordAnalysis   *KeywordAnalysis `json:"keyword_analysis"`
	Recommendations   []string         `json:"recommendations"`
	SkillGaps         []SkillGap       `json:"skill_gaps"`
	SimilarityBackend string           `json:"similarity_backend"`
	Degraded          []string         `json:"degraded,omitempty"`
}

// MatchRequest HTTP/队列 请求体
type MatchRequest struct {
	ResumeText         string `json:"resume_text" validate:"max=200000"`
	JobDescriptionText string `json:"job_description_text" validate:"max=200000"`
}

// BatchMatchRequest 一份简历对多个岗位
type BatchMatchRequest struct {
	ResumeText          string   `json:"resume_text" validate:"max=200000"`
	JobDescriptionTexts []string `json:"job_description_texts" validate:"required,min=1,max=20,dive,max=200000"`
}

// BatchItem 批量结果中的单项，Result 与 Error 二选一
type BatchItem struct {
	Result *MatchResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// BatchMatchResponse 批量匹配响应
type BatchMatchResponse struct {
	Results []BatchItem `json:"results"`
}

// MatchRequestMessage 队列中的匹配请求
type MatchRequestMessage struct {
	RequestID          string `json:"request_id"`
	ResumeText         string `json:"resume_text"`
	JobDescriptionText string `json:"job_description_text"`
}

// MatchResultMessage 队列中回写的匹配结果
type MatchResultMessage struct {
	RequestID   string       `json:"request_id"`
	Result      *MatchResult `json:"result,omitempty"`
	Error       string       `json:"error,omitempty"`
	CompletedAt time.Time    `json:"completed_at"`
}
