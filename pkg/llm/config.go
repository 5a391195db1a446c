package llm

import "time"

// 供应商工厂共用的配置 map 读取函数。零值与类型不匹配都返回默认值。

// ConfigString 读取非空字符串。
func ConfigString(config map[string]any, key, def string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return def
}

// ConfigDuration 读取非负时长。0 是合法值，表示不限制。
func ConfigDuration(config map[string]any, key string, def time.Duration) time.Duration {
	if v, ok := config[key].(time.Duration); ok && v >= 0 {
		return v
	}
	return def
}

// ConfigInt 读取正整数。
func ConfigInt(config map[string]any, key string, def int) int {
	if v, ok := config[key].(int); ok && v > 0 {
		return v
	}
	return def
}

// ConfigNonNegativeInt 读取非负整数。
func ConfigNonNegativeInt(config map[string]any, key string, def int) int {
	if v, ok := config[key].(int); ok && v >= 0 {
		return v
	}
	return def
}

// ConfigFloat 读取正浮点数。
func ConfigFloat(config map[string]any, key string, def float64) float64 {
	if v, ok := config[key].(float64); ok && v > 0 {
		return v
	}
	return def
}
