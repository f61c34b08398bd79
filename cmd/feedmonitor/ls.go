package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rajasatyajit/FeedMonitor/config"
	"github.com/rajasatyajit/FeedMonitor/internal/database"
	"github.com/rajasatyajit/FeedMonitor/internal/logger"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
	"github.com/rajasatyajit/FeedMonitor/internal/store"
)

var listFeedsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List feeds in a table",
	Long:  `List every feed in the configured store with its category, city and monitoring status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Logging.Level, cfg.Logging.Format)

		ctx := cmd.Context()
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer db.Close(context.Background())

		return listFeeds(ctx, cmd.OutOrStdout(), store.New(db))
	},
}

func listFeeds(ctx context.Context, w io.Writer, st store.Store) error {
	feeds, err := st.ListFeeds(ctx)
	if err != nil {
		return fmt.Errorf("fetch feeds: %w", err)
	}

	if len(feeds) == 0 {
		fmt.Fprintln(w, "No feeds found.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Category", "City", "Status", "Created At", "URL"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, f := range feeds {
		table.Append([]string{
			strconv.FormatInt(f.ID, 10),
			f.Name,
			f.Category,
			f.City,
			string(f.Status),
			f.CreatedAt.Format("2006-01-02 15:04:05"),
			f.URL,
		})
	}

	table.Render()

	counts := statusCounts(feeds)
	fmt.Fprintf(w, "%d feeds: %d active, %d inactive, %d error\n", len(feeds),
		counts[models.StatusActive], counts[models.StatusInactive], counts[models.StatusError])
	return nil
}

// statusCounts summarizes feeds by status
func statusCounts(feeds []models.Feed) map[models.FeedStatus]int {
	counts := make(map[models.FeedStatus]int, 3)
	for _, f := range feeds {
		counts[f.Status]++
	}
	return counts
}
