package cmd

import (
	"fmt"
	"strconv"

	"github.com/shqear93/rbzk"
	"github.com/spf13/cobra"
)

var writeLCDCmd = &cobra.Command{
	Use:   "write-lcd LINE TEXT",
	Short: "Write text to an LCD line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("LINE must be an integer: %w", err)
		}
		return withClient(func(zk *rbzk.ZK) error {
			return zk.WriteLCD(line, args[1])
		})
	},
}

var clearLCDCmd = &cobra.Command{
	Use:   "clear-lcd",
	Short: "Clear the LCD screen",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(zk *rbzk.ZK) error {
			return zk.ClearLCD()
		})
	},
}
