package utils

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const genericContentType = "application/octet-stream"

// SniffContentType 读取流头部判断内容类型，读取后回到起点
func SniffContentType(stream io.ReadSeeker) (string, error) {
	buffer := make([]byte, 512)

	n, err := stream.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read stream for mime sniffing: %w", err)
	}

	contentType := http.DetectContentType(buffer[:n])

	_, err = stream.Seek(0, io.SeekStart)
	if err != nil {
		return "", fmt.Errorf("failed to seek stream back to start after sniffing: %w", err)
	}

	return contentType, nil
}

// ResolveContentType 客户端声明了具体类型时原样返回，缺失或为通用二进制类型时按文件内容推断
func ResolveContentType(declared, path string) string {
	declared = strings.TrimSpace(strings.Split(declared, ";")[0])
	if declared != "" && declared != genericContentType {
		return declared
	}

	f, err := os.Open(path)
	if err != nil {
		return declared
	}
	defer func() { _ = f.Close() }()

	sniffed, err := SniffContentType(f)
	if err != nil {
		return declared
	}
	return sniffed
}
