package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"matchbot/internal/config"
	"matchbot/internal/store"
)

var statsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent session outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cacheDir, err := config.CacheDir()
		if err != nil {
			return err
		}
		st, err := store.New(filepath.Join(cacheDir, "matchbot.db"))
		if err != nil {
			return err
		}
		defer st.Close()

		sessions, err := st.RecentSessions(statsLimit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions recorded yet.")
			return nil
		}

		today, err := st.DecidedToday()
		if err == nil {
			fmt.Printf("Decisions today: %d\n\n", today)
		}

		for _, s := range sessions {
			fmt.Printf("%s  %s\n", s.StartedAt.Format("2006-01-02 15:04"), s.ID)
			fmt.Printf("  device %s: %d profiles, %d liked, %d passed, %d commented, %d abandoned\n",
				s.Serial, s.ProfilesProcessed, s.Liked, s.Passed, s.Commented, s.Abandoned)
			if s.HaltReason != "" {
				fmt.Printf("  halted: %s\n", s.HaltReason)
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVarP(&statsLimit, "limit", "n", 10, "number of sessions to show")
}
