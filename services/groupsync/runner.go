// Package groupsync walks every known student group on the timetable
// site and snapshots schedules and teacher cards into the local
// database. It runs off the request path, so it trades latency for
// politeness toward the upstream site.
package groupsync

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"dswagg-backend/lib/schedstore"
	"dswagg-backend/lib/scrapers/dsw"
	"dswagg-backend/lib/timezone"
	"dswagg-backend/services/timetable"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// every group name on the site contains a semester marker, so
	// this one query enumerates the full group list
	enumerationQuery = "sem"

	defaultGroupDelay   = 2 * time.Second
	defaultTeacherDelay = time.Second

	teacherMemoSize = 1024
	teacherMemoTTL  = 4 * time.Hour
)

type Runner struct {
	svc          timetable.Service
	store        schedstore.Store
	groupDelay   time.Duration
	teacherDelay time.Duration
	now          func() time.Time

	// teachers shared across groups are fetched once per TTL window,
	// not once per group
	teacherMemo *expirable.LRU[int, dsw.TeacherCard]
}

type RunnerOptions struct {
	Service timetable.Service
	Store   schedstore.Store
	// pause between consecutive group fetches, defaults to 2s
	GroupDelay time.Duration
	// pause between consecutive teacher fetches, defaults to 1s
	TeacherDelay time.Duration
	// defaults to timezone.Now, overridable in tests
	Now func() time.Time
}

func NewRunner(opts RunnerOptions) *Runner {
	groupDelay := opts.GroupDelay
	if groupDelay <= 0 {
		groupDelay = defaultGroupDelay
	}
	teacherDelay := opts.TeacherDelay
	if teacherDelay <= 0 {
		teacherDelay = defaultTeacherDelay
	}
	now := opts.Now
	if now == nil {
		now = timezone.Now
	}
	return &Runner{
		svc:          opts.Service,
		store:        opts.Store,
		groupDelay:   groupDelay,
		teacherDelay: teacherDelay,
		now:          now,
		teacherMemo:  expirable.NewLRU[int, dsw.TeacherCard](teacherMemoSize, nil, teacherMemoTTL),
	}
}

// Run performs one full sync pass. Only group enumeration is fatal; a
// single group failing to fetch or parse is counted and skipped.
func (r *Runner) Run(ctx context.Context) (schedstore.SyncRun, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	started := r.now()
	from := started.Format("2006-01-02")
	to := started.AddDate(0, 6, 0).Format("2006-01-02")

	groups, err := r.svc.SearchGroups(ctx, enumerationQuery)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "group enumeration failed")
		return schedstore.SyncRun{}, err
	}
	span.SetAttributes(attribute.Int("group_count", len(groups)))

	err = r.store.SaveGroupList(ctx, enumerationQuery, groups, started)
	if err != nil {
		return schedstore.SyncRun{}, err
	}

	teacherNames := map[int]string{}
	groupsFailed := 0
	for i, group := range groups {
		if i > 0 {
			err := sleepCtx(ctx, r.groupDelay)
			if err != nil {
				return schedstore.SyncRun{}, err
			}
		}

		resp, err := r.svc.FetchGroupSchedule(ctx, group.GroupId, from, to, dsw.IntervalSemester)
		if err != nil {
			slog.WarnContext(ctx, "group sync failed, skipping",
				"group_id", group.GroupId, "name", group.Name, "err", err)
			groupsFailed++
			continue
		}
		err = r.store.SaveGroupSchedule(ctx, group, resp.GroupSchedule, r.now())
		if err != nil {
			return schedstore.SyncRun{}, err
		}

		for _, ev := range resp.GroupSchedule {
			if ev.TeacherId == 0 {
				continue
			}
			// first observed name wins, later spellings are noise
			if _, seen := teacherNames[ev.TeacherId]; !seen {
				teacherNames[ev.TeacherId] = ev.TeacherName
			}
		}
	}

	teacherIds := make([]int, 0, len(teacherNames))
	for id := range teacherNames {
		teacherIds = append(teacherIds, id)
	}
	sort.Ints(teacherIds)

	for i, id := range teacherIds {
		card, memoized := r.teacherMemo.Get(id)
		if !memoized {
			if i > 0 {
				err := sleepCtx(ctx, r.teacherDelay)
				if err != nil {
					return schedstore.SyncRun{}, err
				}
			}
			card = r.svc.GetTeacherCard(ctx, id, teacherNames[id], from, to, dsw.IntervalSemester)
			r.teacherMemo.Add(id, card)
		}
		err = r.store.SaveTeacherCard(ctx, card, r.now())
		if err != nil {
			return schedstore.SyncRun{}, err
		}
	}

	run := schedstore.SyncRun{
		StartedAt:     started,
		FinishedAt:    r.now(),
		GroupsTotal:   len(groups),
		GroupsFailed:  groupsFailed,
		TeachersTotal: len(teacherIds),
	}
	err = r.store.RecordSyncRun(ctx, run)
	if err != nil {
		return schedstore.SyncRun{}, err
	}

	slog.InfoContext(ctx, "sync finished",
		"groups", run.GroupsTotal,
		"failed", run.GroupsFailed,
		"teachers", run.TeachersTotal,
		"took", run.FinishedAt.Sub(run.StartedAt))
	return run, nil
}

// RunEvery blocks, repeating Run on the given interval until the
// context is cancelled. Individual run failures are logged, not fatal.
func (r *Runner) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_, err := r.Run(ctx)
		if err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "sync run failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
