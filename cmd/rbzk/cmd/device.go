package cmd

import (
	"github.com/shqear93/rbzk"
	"github.com/spf13/cobra"
)

var testVoiceCmd = &cobra.Command{
	Use:   "test-voice",
	Short: "Play a device voice prompt",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		index, _ := cmd.Flags().GetInt("index")
		return withClient(func(zk *rbzk.ZK) error {
			return zk.TestVoice(index)
		})
	},
}

func init() {
	testVoiceCmd.Flags().Int("index", 0, "voice prompt index (0-51, device-defined)")
}

var enableDeviceCmd = &cobra.Command{
	Use:   "enable-device",
	Short: "Re-enable input acceptance on the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(zk *rbzk.ZK) error {
			return zk.EnableDevice()
		})
	},
}

var disableDeviceCmd = &cobra.Command{
	Use:   "disable-device",
	Short: "Suspend input acceptance on the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(zk *rbzk.ZK) error {
			return zk.DisableDevice()
		})
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Reboot the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(zk *rbzk.ZK) error {
			return zk.Restart()
		})
	},
}

var poweroffCmd = &cobra.Command{
	Use:   "poweroff",
	Short: "Power the device off",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(zk *rbzk.ZK) error {
			return zk.PowerOff()
		})
	},
}
