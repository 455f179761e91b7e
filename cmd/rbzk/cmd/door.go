package cmd

import (
	"fmt"

	"github.com/shqear93/rbzk"
	"github.com/spf13/cobra"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Open the door relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tenths, _ := cmd.Flags().GetInt("time")
		return withClient(func(zk *rbzk.ZK) error {
			return zk.Unlock(tenths)
		})
	},
}

func init() {
	unlockCmd.Flags().Int("time", 50, "unlock duration in tenths of a second")
}

var doorStateCmd = &cobra.Command{
	Use:   "door-state",
	Short: "Report whether the door sensor reads open",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(zk *rbzk.ZK) error {
			open, err := zk.DoorState()
			if err != nil {
				return err
			}
			if open {
				fmt.Println("open")
			} else {
				fmt.Println("closed")
			}
			return nil
		})
	},
}
