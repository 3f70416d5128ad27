package services

import (
	"time"

	"rentbook/internal/models"
)

var (
	now      = time.Now
	location = time.UTC
)

// SetLocation 设置业务时区，"今天"按该时区计算
func SetLocation(loc *time.Location) {
	if loc != nil {
		location = loc
	}
}

// Today 业务时区下的当天日期（UTC零点表示）
func Today() time.Time {
	return models.DateOf(now().In(location))
}
