package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// EmbedModulePrefix 向量化模块
	EmbedModulePrefix = "embed"

	// EntityVector 向量实体
	EntityVector = "vector"

	// KeyEmbeddingVector 文本向量缓存 (HASH: vector, model_version)
	// 格式: app:embed:vector:{strategy}:{content_sha256}
	KeyEmbeddingVector = AppPrefix + ":" + EmbedModulePrefix + ":" + EntityVector + ":%s:%s"
)
