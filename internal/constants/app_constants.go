package constants

import "time"

const (
	// ServiceName 服务名，用于日志和链路追踪
	ServiceName = "ats-match-go"

	// EmbeddingCacheTTL 向量缓存默认过期时间
	EmbeddingCacheTTL = 24 * time.Hour
	// DefaultCacheEntries 进程内向量缓存默认容量
	DefaultCacheEntries = 4096

	// DefaultMaxTextChars 单个输入文本的最大字符数
	DefaultMaxTextChars = 200000
	// DefaultBatchLimit 批量匹配时单次请求的最大岗位数
	DefaultBatchLimit = 20

	// 消息队列默认名称
	DefaultMatchEventsExchange   = "match.events.exchange"
	DefaultMatchRequestQueue     = "q.match_request"
	DefaultMatchRequestRouting   = "match.requested"
	DefaultMatchResultRoutingKey = "match.completed"
)
