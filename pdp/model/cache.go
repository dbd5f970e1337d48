package model

import (
	"time"

	"github.com/hoteltrack/api/model"
)

type CacheEntry struct {
	Grants    []model.Grant
	ExpiresAt time.Time
}
