package util

import "strconv"

// 分页相关常量
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Paging 解析 page 和 limit 查询参数，并限制在合理范围内
func Paging(pageStr, limitStr string) (page, limit int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = DefaultPage
	}
	limit, err = strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
