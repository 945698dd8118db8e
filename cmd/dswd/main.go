package main

import (
	"context"
	"net/http"
	"time"

	"dswagg-backend/lib/configutil"
	configlibsql "dswagg-backend/lib/configutil/libsql"
	"dswagg-backend/lib/schedstore"
	"dswagg-backend/lib/scrapers/dsw"
	"dswagg-backend/lib/serviceutil"
	"dswagg-backend/lib/telemetry"
	"dswagg-backend/services/groupsync"
	"dswagg-backend/services/timetable"
)

type SyncConfig struct {
	Enabled       bool `json:"enabled"`
	IntervalHours int  `json:"interval_hours"`
}

type Config struct {
	Port     int                 `json:"port"`
	Debug    bool                `json:"debug"`
	BaseUrl  string              `json:"base_url"`
	Database configlibsql.Struct `json:"database"`
	Sync     SyncConfig          `json:"sync"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8400
	}

	telemetry.InitSlog(config.Debug)

	t, err := telemetry.SetupFromEnv(ctx, "dswd")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	dsw.SetTracerProvider(t.TracerProvider)
	timetable.SetTracerProvider(t.TracerProvider)
	groupsync.SetTracerProvider(t.TracerProvider)

	database, err := config.Database.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	store := schedstore.NewStore(database)
	err = store.Init(ctx)
	if err != nil {
		serviceutil.Fatal("failed to init database", err)
	}

	service := timetable.NewService(timetable.ServiceOptions{
		Client: dsw.NewClient(dsw.ClientOptions{BaseUrl: config.BaseUrl}),
		Parser: dsw.NewParser(),
	})
	cached := timetable.NewCachedService(service, timetable.NewCacheStore())

	if config.Sync.Enabled {
		interval := time.Duration(config.Sync.IntervalHours) * time.Hour
		if interval <= 0 {
			interval = 24 * time.Hour
		}
		runner := groupsync.NewRunner(groupsync.RunnerOptions{
			Service: service,
			Store:   store,
		})
		go runner.RunEvery(ctx, interval)
	}

	api := Api{service: cached, store: store}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/groups/search", api.SearchGroups)
	mux.HandleFunc("GET /api/groups/{id}/schedule", api.GroupSchedule)
	mux.HandleFunc("GET /api/groups/{id}/schedule/daily", api.DailySchedule)
	mux.HandleFunc("GET /api/groups/{id}/aggregate", api.Aggregate)
	mux.HandleFunc("GET /api/teachers/{id}", api.TeacherCard)
	mux.HandleFunc("GET /api/cache/stats", api.CacheStats)
	mux.HandleFunc("GET /api/sync/status", api.SyncStatus)
	go serviceutil.StartHttpServer(config.Port, mux)

	<-ctx.Done()
}
