package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/neuralninjas/wellness/pkg/companionclient"
	"github.com/spf13/cobra"
)

const modeFile os.FileMode = 0o600

var (
	reportUser   string
	reportDate   string
	reportWeekly bool
	reportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Download a daily or weekly PDF report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if reportWeekly == (reportDate != "") {
			return errors.New("exactly one of --date or --weekly is required")
		}

		c := companionclient.New(companionURL)
		var (
			pdf  []byte
			err  error
			name string
		)
		if reportWeekly {
			pdf, err = c.WeeklyReport(cmd.Context(), reportUser)
			name = fmt.Sprintf("Weekly_Wellness_Report_%s.pdf", reportUser)
		} else {
			pdf, err = c.DailyReport(cmd.Context(), reportUser, reportDate)
			name = fmt.Sprintf("Wellness_Report_%s.pdf", reportDate)
		}
		if companionclient.IsNotFound(err) {
			return fmt.Errorf("no sessions found for %s", reportUser)
		}
		if err != nil {
			return err
		}

		if reportOut == "" {
			reportOut = name
		}
		if err := os.WriteFile(reportOut, pdf, modeFile); err != nil {
			return fmt.Errorf("failed write report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d bytes)\n", reportOut, len(pdf))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportUser, "user", "u", "Guest", "username")
	reportCmd.Flags().StringVarP(&reportDate, "date", "d", "", "session date, YYYY-MM-DD")
	reportCmd.Flags().BoolVarP(&reportWeekly, "weekly", "w", false, "weekly report")
	reportCmd.Flags().StringVarP(&reportOut, "output", "o", "", "output file")
}
