package groupsync

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"dswagg-backend/lib/schedstore"
	schedstoredb "dswagg-backend/lib/schedstore/db"
	"dswagg-backend/lib/scrapers/dsw"
	"dswagg-backend/lib/telemetry"
	"dswagg-backend/lib/timezone"
	"dswagg-backend/services/timetable"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type fakeSite struct {
	groups       []dsw.GroupInfo
	schedules    map[int][]dsw.ScheduleEvent
	failGroups   map[int]bool
	failTeachers map[int]bool

	groupCalls       int
	teacherInfoCalls int
}

func (f *fakeSite) GroupScheduleHTML(ctx context.Context, groupId int, from, to string, interval dsw.IntervalType) (string, error) {
	f.groupCalls++
	if f.failGroups[groupId] {
		return "", dsw.ErrUpstreamUnavailable
	}
	return fmt.Sprintf("group:%d", groupId), nil
}

func (f *fakeSite) TeacherScheduleHTML(ctx context.Context, teacherId int, from, to string, interval dsw.IntervalType) (string, error) {
	if f.failTeachers[teacherId] {
		return "", dsw.ErrUpstreamUnavailable
	}
	return fmt.Sprintf("teacher:%d", teacherId), nil
}

func (f *fakeSite) TeacherInfoHTML(ctx context.Context, teacherId int) (string, error) {
	f.teacherInfoCalls++
	if f.failTeachers[teacherId] {
		return "", dsw.ErrUpstreamUnavailable
	}
	return fmt.Sprintf("info:%d", teacherId), nil
}

func (f *fakeSite) SearchGroupsHTML(ctx context.Context, query string) (string, error) {
	return "search:" + query, nil
}

func (f *fakeSite) ParseSchedule(ctx context.Context, html string) ([]dsw.ScheduleEvent, error) {
	var groupId int
	if _, err := fmt.Sscanf(html, "group:%d", &groupId); err == nil {
		return f.schedules[groupId], nil
	}
	return []dsw.ScheduleEvent{}, nil
}

func (f *fakeSite) ParseTeacherInfo(ctx context.Context, html string, teacherId int) (dsw.TeacherInfo, error) {
	return dsw.TeacherInfo{Name: fmt.Sprintf("Wykładowca %d", teacherId)}, nil
}

func (f *fakeSite) ParseGroups(ctx context.Context, html string) ([]dsw.GroupInfo, error) {
	return f.groups, nil
}

func newTestRunner(t *testing.T, site *fakeSite) (*Runner, schedstore.Store) {
	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })
	_, err = sqlite.Exec(schedstoredb.Schema)
	if err != nil {
		t.Fatal(err)
	}
	store := schedstore.NewStore(sqlite)

	runner := NewRunner(RunnerOptions{
		Service: timetable.NewService(timetable.ServiceOptions{
			Client: site,
			Parser: site,
		}),
		Store:        store,
		GroupDelay:   time.Millisecond,
		TeacherDelay: time.Millisecond,
		Now: func() time.Time {
			return time.Date(2025, time.October, 20, 3, 0, 0, 0, timezone.Location)
		},
	})
	return runner, store
}

func TestRun(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:groupsync")
	defer cleanup()

	site := &fakeSite{
		groups: []dsw.GroupInfo{
			{GroupId: 17, Name: "Informatyka sem 3"},
			{GroupId: 18, Name: "Pedagogika sem 1"},
		},
		schedules: map[int][]dsw.ScheduleEvent{
			17: {
				{Title: "Algorytmy", TeacherName: "Jan Kowalski", TeacherId: 42},
				{Title: "Analiza", TeacherName: "Anna Nowak", TeacherId: 7},
			},
			18: {
				// teacher 42 appears in both groups but is fetched once
				{Title: "Dydaktyka", TeacherName: "Jan Kowalski", TeacherId: 42},
				{Title: "Szkolenie BHP"},
			},
		},
		failGroups:   map[int]bool{},
		failTeachers: map[int]bool{},
	}
	runner, store := newTestRunner(t, site)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	run, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, run.GroupsTotal)
	require.Equal(t, 0, run.GroupsFailed)
	require.Equal(t, 2, run.TeachersTotal)

	groups, err := store.GetGroupList(ctx, "sem")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	rec, err := store.GetGroupSchedule(ctx, 17)
	require.NoError(t, err)
	require.Len(t, rec.Schedule, 2)

	card, err := store.GetTeacherCard(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, "Jan Kowalski", card.Card.Name)

	// the shared teacher was only resolved once
	require.Equal(t, 2, site.teacherInfoCalls)

	latest, err := store.LatestSyncRun(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, latest.GroupsTotal)

	// a second run inside the memo window reuses the cached cards
	_, err = runner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, site.teacherInfoCalls)
}

func TestRunIsolatesGroupFailures(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:groupsync")
	defer cleanup()

	site := &fakeSite{
		groups: []dsw.GroupInfo{
			{GroupId: 17, Name: "Informatyka sem 3"},
			{GroupId: 18, Name: "Pedagogika sem 1"},
			{GroupId: 19, Name: "Prawo sem 5"},
		},
		schedules: map[int][]dsw.ScheduleEvent{
			17: {{Title: "Algorytmy", TeacherName: "Jan Kowalski", TeacherId: 42}},
			19: {{Title: "Prawo karne", TeacherName: "Anna Nowak", TeacherId: 7}},
		},
		failGroups:   map[int]bool{18: true},
		failTeachers: map[int]bool{},
	}
	runner, store := newTestRunner(t, site)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	run, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, run.GroupsTotal)
	require.Equal(t, 1, run.GroupsFailed)
	require.Equal(t, 2, run.TeachersTotal)

	// the failed group has no snapshot, its neighbors do
	_, err = store.GetGroupSchedule(ctx, 18)
	require.ErrorIs(t, err, schedstore.ErrNotFound)
	_, err = store.GetGroupSchedule(ctx, 19)
	require.NoError(t, err)
}

func TestRunDegradedTeacherStillStored(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:groupsync")
	defer cleanup()

	site := &fakeSite{
		groups: []dsw.GroupInfo{{GroupId: 17, Name: "Informatyka sem 3"}},
		schedules: map[int][]dsw.ScheduleEvent{
			17: {{Title: "Algorytmy", TeacherName: "Jan Kowalski", TeacherId: 42}},
		},
		failGroups:   map[int]bool{},
		failTeachers: map[int]bool{42: true},
	}
	runner, store := newTestRunner(t, site)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	run, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, run.TeachersTotal)

	card, err := store.GetTeacherCard(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, dsw.TeacherCard{Id: 42, Name: "Jan Kowalski", Schedule: []dsw.ScheduleEvent{}}, card.Card)
}
