package timetable

import (
	"testing"
	"time"

	"dswagg-backend/lib/scrapers/dsw"
	"dswagg-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

// fakeClock drives a CacheStore through time without sleeping.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func warsaw(year int, month time.Month, day, hour, minute, second int) time.Time {
	return time.Date(year, month, day, hour, minute, second, 0, timezone.Location)
}

func TestGroupScheduleExpiry(t *testing.T) {
	clock := &fakeClock{now: warsaw(2025, time.October, 20, 12, 0, 0)}
	store := newCacheStore(clock.Now)

	key := GroupScheduleKey{GroupId: 17, From: "2025-10-20", To: "2025-10-26", Interval: 1}
	store.SetGroupSchedule(key, GroupScheduleResponse{GroupId: 17})

	clock.Advance(29*time.Minute + 59*time.Second)
	got, ok := store.GetGroupSchedule(key)
	require.True(t, ok)
	require.Equal(t, 17, got.GroupId)

	clock.Advance(2 * time.Second)
	_, ok = store.GetGroupSchedule(key)
	require.False(t, ok)

	// lazy eviction removed the entry, so it no longer counts
	require.Equal(t, 0, store.Stats().GroupScheduleCount)
}

func TestGroupSearchSurvivesDays(t *testing.T) {
	clock := &fakeClock{now: warsaw(2025, time.October, 20, 12, 0, 0)}
	store := newCacheStore(clock.Now)

	key := GroupSearchKey{Query: "sem"}
	store.SetGroupSearch(key, []dsw.GroupInfo{{GroupId: 1, Name: "Informatyka sem 3"}})

	clock.Advance(71 * time.Hour)
	got, ok := store.GetGroupSearch(key)
	require.True(t, ok)
	require.Len(t, got, 1)

	clock.Advance(2 * time.Hour)
	_, ok = store.GetGroupSearch(key)
	require.False(t, ok)
}

func TestAggregateExpiryCappedAt8AM(t *testing.T) {
	// stored at 07:00, the five hour window would reach 12:00 but the
	// entry must die at 08:00
	clock := &fakeClock{now: warsaw(2025, time.October, 20, 7, 0, 0)}
	store := newCacheStore(clock.Now)

	key := AggregateKey{GroupId: 17, From: "2025-10-20", To: "2025-10-26", Interval: 1}
	store.SetAggregate(key, AggregateResponse{GroupId: 17})

	clock.Advance(59*time.Minute + 59*time.Second)
	_, ok := store.GetAggregate(key)
	require.True(t, ok)

	clock.Advance(time.Second)
	_, ok = store.GetAggregate(key)
	require.False(t, ok)
}

func TestAggregateExpiryUncappedAfter8AM(t *testing.T) {
	// stored at 09:00 the next 08:00 is tomorrow, so the plain five
	// hour window applies
	clock := &fakeClock{now: warsaw(2025, time.October, 20, 9, 0, 0)}
	store := newCacheStore(clock.Now)

	key := AggregateKey{GroupId: 17, From: "2025-10-20", To: "2025-10-26", Interval: 1}
	store.SetAggregate(key, AggregateResponse{GroupId: 17})

	clock.Advance(4*time.Hour + 59*time.Minute)
	_, ok := store.GetAggregate(key)
	require.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = store.GetAggregate(key)
	require.False(t, ok)
}

func TestTeacherExpiryCappedAt8AM(t *testing.T) {
	clock := &fakeClock{now: warsaw(2025, time.October, 20, 6, 30, 0)}
	store := newCacheStore(clock.Now)

	key := TeacherKey{TeacherId: 42, From: "2025-10-20", To: "2025-10-26", Interval: 1}
	store.SetTeacher(key, dsw.TeacherCard{Id: 42, Name: "Jan Kowalski"})

	clock.Advance(89 * time.Minute)
	_, ok := store.GetTeacher(key)
	require.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = store.GetTeacher(key)
	require.False(t, ok)
}

func TestDailyScheduleShortTTL(t *testing.T) {
	clock := &fakeClock{now: warsaw(2025, time.October, 20, 12, 0, 0)}
	store := newCacheStore(clock.Now)

	key := DailyScheduleKey{GroupId: 17, Date: "2025-10-20"}
	store.SetDailySchedule(key, GroupScheduleResponse{GroupId: 17})

	clock.Advance(59 * time.Second)
	_, ok := store.GetDailySchedule(key)
	require.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = store.GetDailySchedule(key)
	require.False(t, ok)
}

func TestDistinctKeysDoNotCollide(t *testing.T) {
	clock := &fakeClock{now: warsaw(2025, time.October, 20, 12, 0, 0)}
	store := newCacheStore(clock.Now)

	store.SetDailySchedule(DailyScheduleKey{GroupId: 17, Date: "2025-10-20"}, GroupScheduleResponse{GroupId: 17})
	store.SetDailySchedule(DailyScheduleKey{GroupId: 17, Date: "2025-10-21"}, GroupScheduleResponse{GroupId: 17, From: "2025-10-21"})

	got, ok := store.GetDailySchedule(DailyScheduleKey{GroupId: 17, Date: "2025-10-21"})
	require.True(t, ok)
	require.Equal(t, "2025-10-21", got.From)

	_, ok = store.GetDailySchedule(DailyScheduleKey{GroupId: 18, Date: "2025-10-20"})
	require.False(t, ok)
}

func TestStatsCountsLiveEntriesAndBytes(t *testing.T) {
	clock := &fakeClock{now: warsaw(2025, time.October, 20, 12, 0, 0)}
	store := newCacheStore(clock.Now)

	store.SetGroupSchedule(GroupScheduleKey{GroupId: 1}, GroupScheduleResponse{GroupId: 1})
	store.SetGroupSearch(GroupSearchKey{Query: "sem"}, []dsw.GroupInfo{{GroupId: 1, Name: "Informatyka sem 3"}})
	store.SetTeacher(TeacherKey{TeacherId: 42}, dsw.TeacherCard{Id: 42, Name: "Jan Kowalski"})

	stats := store.Stats()
	require.Equal(t, 1, stats.GroupScheduleCount)
	require.Equal(t, 1, stats.GroupSearchCount)
	require.Equal(t, 0, stats.AggregateCount)
	require.Equal(t, 1, stats.TeacherCount)
	require.Equal(t, 0, stats.DailyScheduleCount)
	require.Greater(t, stats.ApproxTotalBytes, 0)

	// once the short group schedule TTL lapses the stats drop the
	// entry even though nothing read it
	clock.Advance(31 * time.Minute)
	stats = store.Stats()
	require.Equal(t, 0, stats.GroupScheduleCount)
	require.Equal(t, 1, stats.GroupSearchCount)
}
