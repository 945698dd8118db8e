package timetable

import (
	"context"

	"dswagg-backend/lib/scrapers/dsw"
)

// CachedService is a read-through layer over [Service]. Lookups hit
// the store first; misses go upstream and the result is stored before
// returning. Errors are never cached.
type CachedService struct {
	base  Service
	store *CacheStore
}

func NewCachedService(base Service, store *CacheStore) CachedService {
	return CachedService{base: base, store: store}
}

func (c CachedService) FetchGroupSchedule(ctx context.Context, groupId int, from, to string, interval dsw.IntervalType) (GroupScheduleResponse, error) {
	key := GroupScheduleKey{GroupId: groupId, From: from, To: to, Interval: int(interval)}
	if cached, ok := c.store.GetGroupSchedule(key); ok {
		return cached, nil
	}
	resp, err := c.base.FetchGroupSchedule(ctx, groupId, from, to, interval)
	if err != nil {
		return GroupScheduleResponse{}, err
	}
	c.store.SetGroupSchedule(key, resp)
	return resp, nil
}

func (c CachedService) SearchGroups(ctx context.Context, query string) ([]dsw.GroupInfo, error) {
	key := GroupSearchKey{Query: query}
	if cached, ok := c.store.GetGroupSearch(key); ok {
		return cached, nil
	}
	groups, err := c.base.SearchGroups(ctx, query)
	if err != nil {
		return nil, err
	}
	c.store.SetGroupSearch(key, groups)
	return groups, nil
}

func (c CachedService) Aggregate(ctx context.Context, groupId int, from, to string, interval dsw.IntervalType) (AggregateResponse, error) {
	key := AggregateKey{GroupId: groupId, From: from, To: to, Interval: int(interval)}
	if cached, ok := c.store.GetAggregate(key); ok {
		return cached, nil
	}
	resp, err := c.base.Aggregate(ctx, groupId, from, to, interval)
	if err != nil {
		return AggregateResponse{}, err
	}
	c.store.SetAggregate(key, resp)
	return resp, nil
}

// GetTeacherCard caches only real teacher ids. Id 0 stands for "no
// teacher link" and the degraded card for it depends on the fallback
// name, which is not part of the key.
func (c CachedService) GetTeacherCard(ctx context.Context, teacherId int, fallbackName, from, to string, interval dsw.IntervalType) dsw.TeacherCard {
	if teacherId == 0 {
		return c.base.GetTeacherCard(ctx, teacherId, fallbackName, from, to, interval)
	}
	key := TeacherKey{TeacherId: teacherId, From: from, To: to, Interval: int(interval)}
	if cached, ok := c.store.GetTeacher(key); ok {
		return cached
	}
	card := c.base.GetTeacherCard(ctx, teacherId, fallbackName, from, to, interval)
	c.store.SetTeacher(key, card)
	return card
}

// FetchDailySchedule is a single-day view over the weekly endpoint
// with a short TTL, meant for polling clients.
func (c CachedService) FetchDailySchedule(ctx context.Context, groupId int, date string) (GroupScheduleResponse, error) {
	key := DailyScheduleKey{GroupId: groupId, Date: date}
	if cached, ok := c.store.GetDailySchedule(key); ok {
		return cached, nil
	}
	resp, err := c.base.FetchGroupSchedule(ctx, groupId, date, date, dsw.IntervalWeek)
	if err != nil {
		return GroupScheduleResponse{}, err
	}
	c.store.SetDailySchedule(key, resp)
	return resp, nil
}

func (c CachedService) CacheStats() CacheStats {
	return c.store.Stats()
}
