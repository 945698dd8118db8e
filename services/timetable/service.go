package timetable

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"dswagg-backend/lib/scrapers/dsw"
	"dswagg-backend/lib/timezone"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultBatchSize = 6

// Service is the uncached scrape-and-parse pipeline. It holds no
// mutable state; every call is a pure function of its inputs and the
// upstream site.
type Service struct {
	client    UpstreamClient
	parser    ScheduleParser
	batchSize int
	now       func() time.Time
}

type ServiceOptions struct {
	Client UpstreamClient
	Parser ScheduleParser
	// teacher fan-out width during aggregation, defaults to 6
	BatchSize int
	// defaults to timezone.Now, overridable in tests
	Now func() time.Time
}

func NewService(opts ServiceOptions) Service {
	batchSize := opts.BatchSize
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	now := opts.Now
	if now == nil {
		now = timezone.Now
	}
	return Service{
		client:    opts.Client,
		parser:    opts.Parser,
		batchSize: batchSize,
		now:       now,
	}
}

func (s Service) FetchGroupSchedule(ctx context.Context, groupId int, from, to string, interval dsw.IntervalType) (GroupScheduleResponse, error) {
	ctx, span := tracer.Start(ctx, "FetchGroupSchedule")
	defer span.End()
	span.SetAttributes(attribute.Int("group_id", groupId))

	html, err := s.client.GroupScheduleHTML(ctx, groupId, from, to, interval)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch group schedule")
		return GroupScheduleResponse{}, fmt.Errorf("group %d schedule: %w", groupId, err)
	}
	events, err := s.parser.ParseSchedule(ctx, html)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse group schedule")
		return GroupScheduleResponse{}, fmt.Errorf("group %d schedule: %w", groupId, err)
	}

	return GroupScheduleResponse{
		GroupId:       groupId,
		From:          from,
		To:            to,
		IntervalType:  int(interval),
		GroupSchedule: events,
		FetchedAt:     s.now().Format(time.RFC3339),
	}, nil
}

// SearchGroups returns groups matching the query, most similar names
// first.
func (s Service) SearchGroups(ctx context.Context, query string) ([]dsw.GroupInfo, error) {
	ctx, span := tracer.Start(ctx, "SearchGroups")
	defer span.End()

	html, err := s.client.SearchGroupsHTML(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch group search")
		return nil, fmt.Errorf("group search %q: %w", query, err)
	}
	groups, err := s.parser.ParseGroups(ctx, html)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse group search")
		return nil, fmt.Errorf("group search %q: %w", query, err)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return matchr.JaroWinkler(groups[i].Name, query, true) >
			matchr.JaroWinkler(groups[j].Name, query, true)
	})
	return groups, nil
}

// GetTeacherCard resolves a teacher's profile and schedule. It never
// fails: any upstream or parse problem degrades to a card carrying
// only the known id and fallback name.
func (s Service) GetTeacherCard(ctx context.Context, teacherId int, fallbackName, from, to string, interval dsw.IntervalType) dsw.TeacherCard {
	ctx, span := tracer.Start(ctx, "GetTeacherCard")
	defer span.End()
	span.SetAttributes(attribute.Int("teacher_id", teacherId))

	card, err := s.fetchTeacherCard(ctx, teacherId, fallbackName, from, to, interval)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "degraded teacher card")
		slog.WarnContext(ctx, "teacher detail fetch failed, degrading",
			"teacher_id", teacherId, "err", err)
		return degradedCard(teacherId, fallbackName)
	}
	return card
}

func (s Service) fetchTeacherCard(ctx context.Context, teacherId int, fallbackName, from, to string, interval dsw.IntervalType) (dsw.TeacherCard, error) {
	// events without a teacher link share id 0; there is nothing to
	// look up for them
	if teacherId == 0 {
		return degradedCard(0, fallbackName), nil
	}

	infoHTML, err := s.client.TeacherInfoHTML(ctx, teacherId)
	if err != nil {
		return dsw.TeacherCard{}, fmt.Errorf("teacher %d profile: %w", teacherId, err)
	}
	info, err := s.parser.ParseTeacherInfo(ctx, infoHTML, teacherId)
	if err != nil {
		return dsw.TeacherCard{}, fmt.Errorf("teacher %d profile: %w", teacherId, err)
	}

	schedHTML, err := s.client.TeacherScheduleHTML(ctx, teacherId, from, to, interval)
	if err != nil {
		return dsw.TeacherCard{}, fmt.Errorf("teacher %d schedule: %w", teacherId, err)
	}
	sched, err := s.parser.ParseSchedule(ctx, schedHTML)
	if err != nil {
		return dsw.TeacherCard{}, fmt.Errorf("teacher %d schedule: %w", teacherId, err)
	}

	name := fallbackName
	if name == "" {
		name = info.Name
	}
	return dsw.TeacherCard{
		Id:         teacherId,
		Name:       name,
		Title:      info.Title,
		Department: info.Department,
		Email:      info.Email,
		Phone:      info.Phone,
		AboutHTML:  info.AboutHTML,
		Schedule:   sched,
	}, nil
}

func degradedCard(teacherId int, fallbackName string) dsw.TeacherCard {
	return dsw.TeacherCard{
		Id:       teacherId,
		Name:     fallbackName,
		Schedule: []dsw.ScheduleEvent{},
	}
}
