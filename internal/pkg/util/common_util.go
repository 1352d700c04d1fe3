package util

import (
	"strconv"
	"strings"
)

// StrSliceToUInt64Slice 字符串切片转 uint64 切片
func StrSliceToUInt64Slice(strs []string) ([]uint64, error) {
	result := make([]uint64, 0, len(strs))
	for _, s := range strs {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// ParseIDList 解析逗号分隔的ID列表，忽略空项与 0，最多 max 个
func ParseIDList(raw string, max int) ([]uint64, error) {
	parts := strings.Split(raw, ",")
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "0" {
			continue
		}
		trimmed = append(trimmed, p)
	}
	if max > 0 && len(trimmed) > max {
		trimmed = trimmed[:max]
	}
	return StrSliceToUInt64Slice(trimmed)
}
