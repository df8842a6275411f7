// 包 simerr：抽样核心的错误分类；调用方通过 errors.Is 判断类别，具体原因由 %w 包装携带
package simerr

import "errors"

var (
	// ErrInvalidState：参数未设置或在空树/空列表上执行操作；属于配置错误，不在内部重试
	ErrInvalidState = errors.New("invalid state")
	// ErrExhausted：有界随机搜索在重试预算内未找到候选；错误信息需给出调整建议
	ErrExhausted = errors.New("exhausted")
	// ErrDataInconsistency：分割时建筑不落入任何子区域，说明上游几何数据有误
	ErrDataInconsistency = errors.New("data inconsistency")
)
