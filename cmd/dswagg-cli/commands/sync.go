package commands

import (
	"log/slog"
	"time"

	"dswagg-backend/lib/configutil"
	"dswagg-backend/lib/schedstore"
	"dswagg-backend/lib/scrapers/dsw"
	"dswagg-backend/lib/serviceutil"
	"dswagg-backend/services/groupsync"
	"dswagg-backend/services/timetable"

	"github.com/spf13/cobra"
)

type SyncConfig struct {
	BaseUrl string `json:"base_url"`
}

var syncDb *string

func init() {
	syncDb = syncCmd.Flags().String("db", "dswagg.db", "The database to write sync results to.")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync [--db <path/to/output.db>]",
	Short: "Runs one full sync pass over every known group and writes snapshots to a database.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[SyncConfig]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		database, err := openDb(*syncDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		store := schedstore.NewStore(database)
		err = store.Init(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to init db", err)
		}

		runner := groupsync.NewRunner(groupsync.RunnerOptions{
			Service: timetable.NewService(timetable.ServiceOptions{
				Client: dsw.NewClient(dsw.ClientOptions{BaseUrl: cfg.BaseUrl}),
				Parser: dsw.NewParser(),
			}),
			Store: store,
		})

		t1 := time.Now()
		run, err := runner.Run(cmd.Context())
		if err != nil {
			serviceutil.Fatal("sync failed", err)
		}
		t2 := time.Now()

		slog.Info("sync done",
			"groups", run.GroupsTotal,
			"failed", run.GroupsFailed,
			"teachers", run.TeachersTotal,
			"seconds", t2.Sub(t1).Seconds())
	},
}
