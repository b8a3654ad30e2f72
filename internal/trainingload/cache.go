package trainingload

import (
	"encoding/json"
	"fmt"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	recentLoadCacheExpire = 10 * 60 // seconds
	megabyte              = 1024 * 1024
)

// LoadCache keeps the short recent-load series per athlete. Entries are
// dropped whenever the athlete's series is rebuilt.
type LoadCache struct {
	cache *freecache.Cache
}

func NewLoadCache(sizeMB int) *LoadCache {
	if sizeMB <= 0 {
		sizeMB = 10
	}
	return &LoadCache{
		cache: freecache.NewCache(sizeMB * megabyte),
	}
}

func recentLoadKey(athleteID int64) []byte {
	return []byte(fmt.Sprintf("recent-load::%d", athleteID))
}

func (c *LoadCache) GetRecentLoad(athleteID int64) ([]DailyMetric, bool) {
	cached, err := c.cache.Get(recentLoadKey(athleteID))
	if err != nil {
		return nil, false
	}

	var rows []DailyMetric
	if err := json.Unmarshal(cached, &rows); err != nil {
		log.Errorf("failed to unmarshal recent load from cache for athlete %d: %s", athleteID, err)
		return nil, false
	}
	return rows, true
}

func (c *LoadCache) SetRecentLoad(athleteID int64, rows []DailyMetric) {
	rowsBytes, err := json.Marshal(rows)
	if err != nil {
		log.Errorf("failed to marshal recent load for athlete %d: %s", athleteID, err)
		return
	}
	if err := c.cache.Set(recentLoadKey(athleteID), rowsBytes, recentLoadCacheExpire); err != nil {
		log.Errorf("failed to write recent load cache for athlete %d: %s", athleteID, err)
	}
}

func (c *LoadCache) Invalidate(athleteID int64) {
	c.cache.Del(recentLoadKey(athleteID))
}
