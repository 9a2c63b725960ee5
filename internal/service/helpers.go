package service

import (
	"strconv"

	"github.com/shopspring/decimal"
)

var decimalZero = decimal.Zero

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func maxUint(a, b uint) uint {
	if a > b {
		return a
	}
	return b
}

func minUint(a, b uint) uint {
	if a < b {
		return a
	}
	return b
}
