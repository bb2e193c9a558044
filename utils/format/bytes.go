package format

import (
	"fmt"
)

const byteUnit = 1024

var units = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// HumanReadableSize 将字节数转换为人类可读的格式
// 配额计数器允许为负数，负值保留符号
func HumanReadableSize(bytes int64) string {
	sign := ""
	if bytes < 0 {
		sign = "-"
		bytes = -bytes
	}
	if bytes < byteUnit {
		return fmt.Sprintf("%s%d B", sign, bytes)
	}

	div, exp := int64(byteUnit), 1
	for n := bytes / byteUnit; n >= byteUnit && exp < len(units)-1; n /= byteUnit {
		div *= byteUnit
		exp++
	}

	return fmt.Sprintf("%s%.2f %s", sign, float64(bytes)/float64(div), units[exp])
}

// KBToBytes 将以 KB 为单位的设置值转换为字节
func KBToBytes(kb int64) int64 {
	return kb * byteUnit
}
