package helper_util

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// ParseTime accepts RFC 3339 timestamps or bare dates.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

// GetTimeRangeParams reads the optional from/to query parameters. Missing
// bounds are returned as zero times.
func GetTimeRangeParams(c *gin.Context) (from time.Time, to time.Time, err error) {
	if v := c.Query("from"); v != "" {
		if from, err = ParseTime(v); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = ParseTime(v); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return from, to, nil
}
