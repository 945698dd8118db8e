// Package schedstore persists the periodic sync output so group and
// teacher data survives restarts and stays queryable when the
// university site is down.
package schedstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dswagg-backend/lib/schedstore/db"
	"dswagg-backend/lib/scrapers/dsw"
)

var ErrNotFound = errors.New("schedstore: not found")

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Init creates the tables. Safe to call on every startup.
func (s Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, db.Schema)
	return err
}

type GroupRecord struct {
	Group     dsw.GroupInfo
	Schedule  []dsw.ScheduleEvent
	UpdatedAt time.Time
}

func (s Store) SaveGroupSchedule(ctx context.Context, group dsw.GroupInfo, schedule []dsw.ScheduleEvent, at time.Time) error {
	encoded, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("encode schedule for group %d: %w", group.GroupId, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO group_schedules (group_id, name, schedule, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (group_id) DO UPDATE SET
    name = excluded.name,
    schedule = excluded.schedule,
    updated_at = excluded.updated_at
`, group.GroupId, group.Name, string(encoded), at.Unix())
	return err
}

func (s Store) GetGroupSchedule(ctx context.Context, groupId int) (GroupRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT name, schedule, updated_at FROM group_schedules WHERE group_id = ?
`, groupId)

	var name, encoded string
	var updatedAt int64
	err := row.Scan(&name, &encoded, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return GroupRecord{}, ErrNotFound
	}
	if err != nil {
		return GroupRecord{}, err
	}

	var schedule []dsw.ScheduleEvent
	err = json.Unmarshal([]byte(encoded), &schedule)
	if err != nil {
		return GroupRecord{}, fmt.Errorf("decode schedule for group %d: %w", groupId, err)
	}
	return GroupRecord{
		Group:     dsw.GroupInfo{GroupId: groupId, Name: name},
		Schedule:  schedule,
		UpdatedAt: time.Unix(updatedAt, 0),
	}, nil
}

type TeacherRecord struct {
	Card      dsw.TeacherCard
	UpdatedAt time.Time
}

func (s Store) SaveTeacherCard(ctx context.Context, card dsw.TeacherCard, at time.Time) error {
	encoded, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("encode card for teacher %d: %w", card.Id, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO teacher_cards (teacher_id, card, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (teacher_id) DO UPDATE SET
    card = excluded.card,
    updated_at = excluded.updated_at
`, card.Id, string(encoded), at.Unix())
	return err
}

func (s Store) GetTeacherCard(ctx context.Context, teacherId int) (TeacherRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT card, updated_at FROM teacher_cards WHERE teacher_id = ?
`, teacherId)

	var encoded string
	var updatedAt int64
	err := row.Scan(&encoded, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TeacherRecord{}, ErrNotFound
	}
	if err != nil {
		return TeacherRecord{}, err
	}

	var card dsw.TeacherCard
	err = json.Unmarshal([]byte(encoded), &card)
	if err != nil {
		return TeacherRecord{}, fmt.Errorf("decode card for teacher %d: %w", teacherId, err)
	}
	return TeacherRecord{Card: card, UpdatedAt: time.Unix(updatedAt, 0)}, nil
}

func (s Store) SaveGroupList(ctx context.Context, query string, groups []dsw.GroupInfo, at time.Time) error {
	encoded, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("encode group list %q: %w", query, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO group_lists (query, groups, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (query) DO UPDATE SET
    groups = excluded.groups,
    updated_at = excluded.updated_at
`, query, string(encoded), at.Unix())
	return err
}

func (s Store) GetGroupList(ctx context.Context, query string) ([]dsw.GroupInfo, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT groups FROM group_lists WHERE query = ?
`, query)

	var encoded string
	err := row.Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var groups []dsw.GroupInfo
	err = json.Unmarshal([]byte(encoded), &groups)
	if err != nil {
		return nil, fmt.Errorf("decode group list %q: %w", query, err)
	}
	return groups, nil
}

type SyncRun struct {
	StartedAt     time.Time
	FinishedAt    time.Time
	GroupsTotal   int
	GroupsFailed  int
	TeachersTotal int
}

func (s Store) RecordSyncRun(ctx context.Context, run SyncRun) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sync_runs (started_at, finished_at, groups_total, groups_failed, teachers_total)
VALUES (?, ?, ?, ?, ?)
`, run.StartedAt.Unix(), run.FinishedAt.Unix(), run.GroupsTotal, run.GroupsFailed, run.TeachersTotal)
	return err
}

func (s Store) LatestSyncRun(ctx context.Context) (SyncRun, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT started_at, finished_at, groups_total, groups_failed, teachers_total
FROM sync_runs ORDER BY id DESC LIMIT 1
`)

	var startedAt, finishedAt int64
	var run SyncRun
	err := row.Scan(&startedAt, &finishedAt, &run.GroupsTotal, &run.GroupsFailed, &run.TeachersTotal)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncRun{}, ErrNotFound
	}
	if err != nil {
		return SyncRun{}, err
	}
	run.StartedAt = time.Unix(startedAt, 0)
	run.FinishedAt = time.Unix(finishedAt, 0)
	return run, nil
}
