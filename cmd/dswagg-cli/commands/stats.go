package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"dswagg-backend/services/timetable"

	"github.com/go-resty/resty/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statsAddr *string

func init() {
	statsAddr = cacheStatsCmd.Flags().String("addr", "http://localhost:8400", "The address of a running dswd server.")
	rootCmd.AddCommand(cacheStatsCmd)
}

var cacheStatsCmd = &cobra.Command{
	Use:   "cache-stats [--addr <http://host:port>]",
	Short: "Prints the live cache statistics of a running dswd server.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := resty.New().R().
			SetContext(cmd.Context()).
			Get(*statsAddr + "/api/cache/stats")
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		if res.StatusCode() != 200 {
			fmt.Fprintf(os.Stderr, "server returned status %d\n", res.StatusCode())
			os.Exit(1)
		}

		var stats timetable.CacheStats
		err = json.Unmarshal(res.Body(), &stats)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Keyspace", "Live entries"})
		t.AppendRow(table.Row{"group schedules", stats.GroupScheduleCount})
		t.AppendRow(table.Row{"group searches", stats.GroupSearchCount})
		t.AppendRow(table.Row{"aggregates", stats.AggregateCount})
		t.AppendRow(table.Row{"teacher cards", stats.TeacherCount})
		t.AppendRow(table.Row{"daily schedules", stats.DailyScheduleCount})
		t.AppendFooter(table.Row{"approx bytes", stats.ApproxTotalBytes})

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
