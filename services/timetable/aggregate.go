package timetable

import (
	"context"
	"sort"
	"sync"
	"time"

	"dswagg-backend/lib/scrapers/dsw"

	"go.opentelemetry.io/otel/attribute"
)

type teacherRef struct {
	id   int
	name string
}

// Aggregate fetches a group's schedule and resolves every referenced
// teacher in bounded batches. Only the group's own schedule is fatal;
// each teacher lookup degrades independently so one slow or broken
// profile never takes the response down.
func (s Service) Aggregate(ctx context.Context, groupId int, from, to string, interval dsw.IntervalType) (AggregateResponse, error) {
	ctx, span := tracer.Start(ctx, "Aggregate")
	defer span.End()
	span.SetAttributes(attribute.Int("group_id", groupId))

	schedule, err := s.FetchGroupSchedule(ctx, groupId, from, to, interval)
	if err != nil {
		return AggregateResponse{}, err
	}

	refs := distinctTeachers(schedule.GroupSchedule)
	span.SetAttributes(attribute.Int("teacher_count", len(refs)))

	cards := make([]dsw.TeacherCard, len(refs))
	for batchStart := 0; batchStart < len(refs); batchStart += s.batchSize {
		batchEnd := min(batchStart+s.batchSize, len(refs))

		var wg sync.WaitGroup
		for i := batchStart; i < batchEnd; i++ {
			wg.Add(1)
			go func(i int, ref teacherRef) {
				defer wg.Done()
				// results land at their original index, keeping the
				// sorted order independent of completion order
				cards[i] = s.GetTeacherCard(ctx, ref.id, ref.name, from, to, interval)
			}(i, refs[i])
		}
		wg.Wait()
	}

	return AggregateResponse{
		GroupId:       groupId,
		From:          from,
		To:            to,
		IntervalType:  int(interval),
		GroupSchedule: schedule.GroupSchedule,
		Teachers:      cards,
		FetchedAt:     s.now().Format(time.RFC3339),
	}, nil
}

// distinctTeachers keys on the (id, name) pair: the upstream data
// sometimes references the same name with and without an id and there
// is no safe way to merge those.
func distinctTeachers(events []dsw.ScheduleEvent) []teacherRef {
	set := map[teacherRef]struct{}{}
	for _, ev := range events {
		// events without a teacher link still contribute one (0, "")
		// entry so the card list mirrors the pairs in the schedule
		set[teacherRef{id: ev.TeacherId, name: ev.TeacherName}] = struct{}{}
	}

	refs := make([]teacherRef, 0, len(set))
	for ref := range set {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].name != refs[j].name {
			return refs[i].name < refs[j].name
		}
		return refs[i].id < refs[j].id
	})
	return refs
}
