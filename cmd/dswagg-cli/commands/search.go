package commands

import (
	"fmt"
	"os"
	"strings"

	"dswagg-backend/lib/scrapers/dsw"
	"dswagg-backend/services/timetable"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var searchBaseUrl *string

func init() {
	searchBaseUrl = searchCmd.Flags().String("base-url", "", "Overrides the timetable site url.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Searches the timetable site for groups matching a name.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service := timetable.NewService(timetable.ServiceOptions{
			Client: dsw.NewClient(dsw.ClientOptions{BaseUrl: *searchBaseUrl}),
			Parser: dsw.NewParser(),
		})

		groups, err := service.SearchGroups(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Name", "Program", "Faculty", "Tracks"})

		for _, g := range groups {
			tracks := make([]string, len(g.Tracks))
			for i, track := range g.Tracks {
				tracks[i] = track.Title
			}
			t.AppendRow(table.Row{g.GroupId, g.Name, g.Program, g.Faculty, strings.Join(tracks, ", ")})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
