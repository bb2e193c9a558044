package generator

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// ImageRoot 图片存储根目录
const ImageRoot = "image"

// PathGenerator 图片存储路径生成器
// 原图: image/<container>/<lower(epoch + filename)>
// 派生图: image/<container>/<prefix><原图文件名>.jpg，保留原扩展名使派生图随原图唯一
type PathGenerator struct {
	suffix func() string
}

// NewPathGenerator 创建路径生成器
func NewPathGenerator() *PathGenerator {
	return &PathGenerator{suffix: shortID}
}

// ContainerDir 返回容器目录
func (pg *PathGenerator) ContainerDir(containerGUID uint) string {
	return ImageRoot + "/" + strconv.FormatUint(uint64(containerGUID), 10)
}

// OriginalPath 生成原图路径
// attempt 为 0 时为纯时间戳前缀形式，之后每次重试在扩展名前追加随机后缀
func (pg *PathGenerator) OriginalPath(containerGUID uint, originalName string, uploadTime time.Time, attempt int) string {
	name := strings.ToLower(strconv.FormatInt(uploadTime.Unix(), 10) + SanitizeFilename(originalName))
	if attempt > 0 {
		ext := path.Ext(name)
		name = fmt.Sprintf("%s-%s%s", strings.TrimSuffix(name, ext), pg.suffix(), ext)
	}
	return pg.ContainerDir(containerGUID) + "/" + name
}

// DerivativePath 根据原图路径与尺寸前缀生成派生图路径
func (pg *PathGenerator) DerivativePath(originalPath, prefix string) string {
	dir, file := path.Split(originalPath)
	return dir + prefix + file + ".jpg"
}

// SanitizeFilename 去除目录部分并把不安全字符替换为下划线
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			sb.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}

	cleaned := sb.String()
	for strings.Contains(cleaned, "..") {
		cleaned = strings.ReplaceAll(cleaned, "..", ".")
	}
	cleaned = strings.TrimLeft(cleaned, ".")
	if cleaned == "" {
		cleaned = "upload"
	}
	return cleaned
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
