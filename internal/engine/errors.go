package engine

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	// ErrInput 输入为空、无法解析为文本或超出长度限制
	ErrInput = errors.New("输入不合法")
	// ErrEmbeddingUnavailable 向量化后端不可用，在引擎内部降级处理
	ErrEmbeddingUnavailable = errors.New("语义相似度不可用")
	// ErrConfiguration 词表或配置不合法，只在启动时出现
	ErrConfiguration = errors.New("配置错误")
)

// AnalysisError 包含详细错误信息的自定义错误
type AnalysisError struct {
	Op      string
	BaseErr error
	Err     error // 底层原因，可以为空
	Detail  string
}

func (e *AnalysisError) Error() string {
	msg := fmt.Sprintf("%s (操作:%s)", e.BaseErr, e.Op)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AnalysisError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *AnalysisError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewInputError(op, detail string) error {
	return &AnalysisError{
		Op:      op,
		BaseErr: ErrInput,
		Detail:  detail,
	}
}

func NewEmbeddingError(op string, err error) error {
	return &AnalysisError{
		Op:      op,
		BaseErr: ErrEmbeddingUnavailable,
		Err:     err,
	}
}

func NewConfigurationError(op string, err error) error {
	return &AnalysisError{
		Op:      op,
		BaseErr: ErrConfiguration,
		Err:     err,
	}
}
