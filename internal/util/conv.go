package util

import (
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
)

var errNotPositiveInt = errors.New("not a positive integer")

// ParseUintParam 解析可选的数字ID参数，空字符串返回 0，非正整数返回错误
func ParseUintParam(s string) (uint, error) {
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errNotPositiveInt
	}
	return uint(id), nil
}

// Round rounds half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Percent returns part/whole*100, or 0 when whole is 0.
func Percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(whole)).
		Mul(decimal.NewFromInt(100)).
		InexactFloat64()
}
