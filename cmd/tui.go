package cmd

import (
	"postershelf/tui"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [category]",
	Short: "Launch interactive terminal UI",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		initial := ""
		if len(args) == 1 {
			initial = args[0]
		}

		if err := tui.Run(cmd.Context(), cfg, initial); err != nil {
			logrus.Fatalf("TUI exited with error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
