package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetCacheLifespan reads CACHE_LIFESPAN in hours. Unset or non-positive means one hour.
func GetCacheLifespan() time.Duration {
	hours, err := strconv.Atoi(strings.TrimSpace(os.Getenv("CACHE_LIFESPAN")))
	if err != nil || hours <= 0 {
		return time.Hour
	}
	return time.Duration(hours) * time.Hour
}
