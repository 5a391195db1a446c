package biz

import "strings"

const (
	humanMarker = "Human:"
	boldMarker  = "**"
)

// Sanitize 清理模型原始输出：在第一个 "Human:" 处截断并去掉所有 "**"。
// 去掉 "**" 可能拼出新的 "Human:"（如 "Hu**man:"），因此重复直到结果不再变化。
// 结果不含 "Human:"，首尾没有空白。
func Sanitize(raw string) string {
	s := raw
	for {
		next := sanitizeOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func sanitizeOnce(s string) string {
	if i := strings.Index(s, humanMarker); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, boldMarker, "")
	return strings.TrimSpace(s)
}
