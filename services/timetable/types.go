package timetable

import (
	"context"

	"dswagg-backend/lib/scrapers/dsw"
)

// UpstreamClient is the capability the timetable site provides. The
// one production implementation is [dsw.Client]; tests use canned
// HTML.
type UpstreamClient interface {
	GroupScheduleHTML(ctx context.Context, groupId int, from, to string, interval dsw.IntervalType) (string, error)
	TeacherScheduleHTML(ctx context.Context, teacherId int, from, to string, interval dsw.IntervalType) (string, error)
	TeacherInfoHTML(ctx context.Context, teacherId int) (string, error)
	SearchGroupsHTML(ctx context.Context, query string) (string, error)
}

// ScheduleParser extracts structure from upstream HTML. The one
// production implementation is [dsw.Parser].
type ScheduleParser interface {
	ParseSchedule(ctx context.Context, html string) ([]dsw.ScheduleEvent, error)
	ParseTeacherInfo(ctx context.Context, html string, teacherId int) (dsw.TeacherInfo, error)
	ParseGroups(ctx context.Context, html string) ([]dsw.GroupInfo, error)
}

type GroupScheduleResponse struct {
	GroupId       int                 `json:"groupId"`
	From          string              `json:"from"`
	To            string              `json:"to"`
	IntervalType  int                 `json:"intervalType"`
	GroupSchedule []dsw.ScheduleEvent `json:"groupSchedule"`
	FetchedAt     string              `json:"fetchedAt"`
}

// AggregateResponse carries a group's schedule together with the
// resolved cards of every teacher it references, sorted by name.
type AggregateResponse struct {
	GroupId       int                 `json:"groupId"`
	From          string              `json:"from"`
	To            string              `json:"to"`
	IntervalType  int                 `json:"intervalType"`
	GroupSchedule []dsw.ScheduleEvent `json:"groupSchedule"`
	Teachers      []dsw.TeacherCard   `json:"teachers"`
	FetchedAt     string              `json:"fetchedAt"`
}
