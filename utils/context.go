package utils

import (
	"context"
	"errors"
	"strings"
)

// ContextUserIDKey gin 上下文中当前用户 GUID 的键
const ContextUserIDKey = "user_guid"

// IsContextCanceled 检查错误是否由客户端断开导致，超时不算
// 部分存储 SDK 不包装原始错误，只能按文本匹配
func IsContextCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return strings.Contains(err.Error(), "context canceled")
}
