package schedstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"dswagg-backend/lib/schedstore/db"
	"dswagg-backend/lib/scrapers/dsw"
	"dswagg-backend/lib/telemetry"
	"dswagg-backend/lib/timezone"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) Store {
	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })
	_, err = sqlite.Exec(db.Schema)
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(sqlite)
}

func TestStore(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:schedstore")
	defer cleanup()

	store := newTestStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		_, err := store.GetGroupSchedule(ctx, 123)
		require.ErrorIs(t, err, ErrNotFound)
	}
	{
		group := dsw.GroupInfo{GroupId: 17, Name: "Informatyka sem 3"}
		schedule := []dsw.ScheduleEvent{
			{Title: "Algorytmy", TeacherName: "Jan Kowalski", TeacherId: 42,
				StartISO: "2025-10-20T08:00:00+02:00", EndISO: "2025-10-20T09:30:00+02:00"},
		}
		at := time.Date(2025, time.October, 20, 12, 0, 0, 0, timezone.Location)

		err := store.SaveGroupSchedule(ctx, group, schedule, at)
		if err != nil {
			t.Fatal(err)
		}

		rec, err := store.GetGroupSchedule(ctx, 17)
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, group, rec.Group)
		require.Equal(t, schedule, rec.Schedule)
		require.Equal(t, at.Unix(), rec.UpdatedAt.Unix())

		// a second save for the same group replaces, never duplicates
		err = store.SaveGroupSchedule(ctx, group, []dsw.ScheduleEvent{}, at.Add(time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		rec, err = store.GetGroupSchedule(ctx, 17)
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, rec.Schedule, 0)
		require.Equal(t, at.Add(time.Hour).Unix(), rec.UpdatedAt.Unix())
	}
	{
		card := dsw.TeacherCard{
			Id: 42, Name: "Jan Kowalski", Title: "dr",
			Email:    "j.kowalski@dsw.edu.pl",
			Schedule: []dsw.ScheduleEvent{{Title: "Algorytmy"}},
		}
		err := store.SaveTeacherCard(ctx, card, timezone.Now())
		if err != nil {
			t.Fatal(err)
		}

		rec, err := store.GetTeacherCard(ctx, 42)
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, card, rec.Card)

		_, err = store.GetTeacherCard(ctx, 43)
		require.ErrorIs(t, err, ErrNotFound)
	}
	{
		groups := []dsw.GroupInfo{
			{GroupId: 17, Name: "Informatyka sem 3", Program: "Informatyka", Faculty: "WST"},
			{GroupId: 18, Name: "Pedagogika sem 1", Program: "Pedagogika", Faculty: "WNP"},
		}
		err := store.SaveGroupList(ctx, "sem", groups, timezone.Now())
		if err != nil {
			t.Fatal(err)
		}

		got, err := store.GetGroupList(ctx, "sem")
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, groups, got)

		_, err = store.GetGroupList(ctx, "other")
		require.ErrorIs(t, err, ErrNotFound)
	}
}

func TestSyncRuns(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:schedstore")
	defer cleanup()

	store := newTestStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := store.LatestSyncRun(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	started := time.Date(2025, time.October, 20, 3, 0, 0, 0, timezone.Location)
	err = store.RecordSyncRun(ctx, SyncRun{
		StartedAt:     started,
		FinishedAt:    started.Add(20 * time.Minute),
		GroupsTotal:   120,
		GroupsFailed:  2,
		TeachersTotal: 85,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = store.RecordSyncRun(ctx, SyncRun{
		StartedAt:     started.Add(24 * time.Hour),
		FinishedAt:    started.Add(24*time.Hour + 18*time.Minute),
		GroupsTotal:   121,
		GroupsFailed:  0,
		TeachersTotal: 86,
	})
	if err != nil {
		t.Fatal(err)
	}

	latest, err := store.LatestSyncRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 121, latest.GroupsTotal)
	require.Equal(t, 0, latest.GroupsFailed)
	require.Equal(t, started.Add(24*time.Hour).Unix(), latest.StartedAt.Unix())
}
