package timetable

import (
	"encoding/json"
	"sync"
	"time"

	"dswagg-backend/lib/scrapers/dsw"
	"dswagg-backend/lib/timezone"
)

// cache keys are the exact request parameters per endpoint shape;
// distinct tuples never share an entry

type GroupScheduleKey struct {
	GroupId  int
	From     string
	To       string
	Interval int
}

type GroupSearchKey struct {
	Query string
}

type AggregateKey struct {
	GroupId  int
	From     string
	To       string
	Interval int
}

type TeacherKey struct {
	TeacherId int
	From      string
	To        string
	Interval  int
}

type DailyScheduleKey struct {
	GroupId int
	Date    string
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// a value is live iff now is strictly before its expiry
func cacheGet[K comparable, V any](entries map[K]cacheEntry[V], key K, now time.Time) (V, bool) {
	e, ok := entries[key]
	if ok && now.Before(e.expiresAt) {
		return e.value, true
	}
	// lazy eviction: an expired entry is removed on the read that
	// finds it
	delete(entries, key)
	var zero V
	return zero, false
}

func liveStats[K comparable, V any](entries map[K]cacheEntry[V], now time.Time) (count, bytes int) {
	for _, e := range entries {
		if !now.Before(e.expiresAt) {
			continue
		}
		count++
		encoded, err := json.Marshal(e.value)
		if err == nil {
			bytes += len(encoded)
		}
	}
	return count, bytes
}

const (
	groupScheduleTTL = 30 * time.Minute
	groupSearchTTL   = 3 * 24 * time.Hour
	aggregateTTL     = 5 * time.Hour
	teacherTTL       = 5 * time.Hour
	dailyScheduleTTL = 60 * time.Second
)

// CacheStore holds one independent keyed map per endpoint shape. All
// mutation funnels through a single mutex so readers never observe a
// half-updated map.
type CacheStore struct {
	mu  sync.Mutex
	now func() time.Time

	groupSchedule map[GroupScheduleKey]cacheEntry[GroupScheduleResponse]
	groupSearch   map[GroupSearchKey]cacheEntry[[]dsw.GroupInfo]
	aggregate     map[AggregateKey]cacheEntry[AggregateResponse]
	teacher       map[TeacherKey]cacheEntry[dsw.TeacherCard]
	dailySchedule map[DailyScheduleKey]cacheEntry[GroupScheduleResponse]
}

func NewCacheStore() *CacheStore {
	return newCacheStore(timezone.Now)
}

func newCacheStore(now func() time.Time) *CacheStore {
	return &CacheStore{
		now:           now,
		groupSchedule: map[GroupScheduleKey]cacheEntry[GroupScheduleResponse]{},
		groupSearch:   map[GroupSearchKey]cacheEntry[[]dsw.GroupInfo]{},
		aggregate:     map[AggregateKey]cacheEntry[AggregateResponse]{},
		teacher:       map[TeacherKey]cacheEntry[dsw.TeacherCard]{},
		dailySchedule: map[DailyScheduleKey]cacheEntry[GroupScheduleResponse]{},
	}
}

// expiry is now+ttl, optionally capped at the next 08:00 Warsaw so
// morning requests always see fresh data on a day's first load
func (c *CacheStore) expiry(ttl time.Duration, resetAt8 bool) time.Time {
	now := c.now()
	expires := now.Add(ttl)
	if resetAt8 {
		hardReset := timezone.Next8AM(now)
		if hardReset.Before(expires) {
			return hardReset
		}
	}
	return expires
}

func (c *CacheStore) GetGroupSchedule(key GroupScheduleKey) (GroupScheduleResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cacheGet(c.groupSchedule, key, c.now())
}

func (c *CacheStore) SetGroupSchedule(key GroupScheduleKey, value GroupScheduleResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groupSchedule[key] = cacheEntry[GroupScheduleResponse]{value: value, expiresAt: c.expiry(groupScheduleTTL, false)}
}

func (c *CacheStore) GetGroupSearch(key GroupSearchKey) ([]dsw.GroupInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cacheGet(c.groupSearch, key, c.now())
}

func (c *CacheStore) SetGroupSearch(key GroupSearchKey, value []dsw.GroupInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groupSearch[key] = cacheEntry[[]dsw.GroupInfo]{value: value, expiresAt: c.expiry(groupSearchTTL, false)}
}

func (c *CacheStore) GetAggregate(key AggregateKey) (AggregateResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cacheGet(c.aggregate, key, c.now())
}

func (c *CacheStore) SetAggregate(key AggregateKey, value AggregateResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aggregate[key] = cacheEntry[AggregateResponse]{value: value, expiresAt: c.expiry(aggregateTTL, true)}
}

func (c *CacheStore) GetTeacher(key TeacherKey) (dsw.TeacherCard, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cacheGet(c.teacher, key, c.now())
}

func (c *CacheStore) SetTeacher(key TeacherKey, value dsw.TeacherCard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teacher[key] = cacheEntry[dsw.TeacherCard]{value: value, expiresAt: c.expiry(teacherTTL, true)}
}

func (c *CacheStore) GetDailySchedule(key DailyScheduleKey) (GroupScheduleResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cacheGet(c.dailySchedule, key, c.now())
}

func (c *CacheStore) SetDailySchedule(key DailyScheduleKey, value GroupScheduleResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dailySchedule[key] = cacheEntry[GroupScheduleResponse]{value: value, expiresAt: c.expiry(dailyScheduleTTL, false)}
}

type CacheStats struct {
	GroupScheduleCount int `json:"groupScheduleCount"`
	GroupSearchCount   int `json:"groupSearchCount"`
	AggregateCount     int `json:"aggregateCount"`
	TeacherCount       int `json:"teacherCount"`
	DailyScheduleCount int `json:"dailyScheduleCount"`

	// sum of the JSON encodings of every live value; a trend signal
	// for monitoring, not a real memory measurement
	ApproxTotalBytes int `json:"approxTotalBytes"`
}

func (c *CacheStore) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()

	var stats CacheStats
	var bytes int

	stats.GroupScheduleCount, bytes = liveStats(c.groupSchedule, now)
	stats.ApproxTotalBytes += bytes
	stats.GroupSearchCount, bytes = liveStats(c.groupSearch, now)
	stats.ApproxTotalBytes += bytes
	stats.AggregateCount, bytes = liveStats(c.aggregate, now)
	stats.ApproxTotalBytes += bytes
	stats.TeacherCount, bytes = liveStats(c.teacher, now)
	stats.ApproxTotalBytes += bytes
	stats.DailyScheduleCount, bytes = liveStats(c.dailySchedule, now)
	stats.ApproxTotalBytes += bytes

	return stats
}
