package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rbzk",
	Short: "Talk to a ZKTeco biometric terminal over the ZK wire protocol",
}

// Execute runs the root command. It is the sole entry point called from
// main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default search: $XDG_CONFIG_HOME/rbzk/config.yml, $HOME/.config/rbzk/config.yml, ./.rbzk.yml)")
	flags.String("ip", "", "device IP address")
	flags.Int("port", 4370, "device port")
	flags.Int("timeout", 60, "per-operation timeout in seconds")
	flags.Int("password", 0, "device communication password")
	flags.Bool("verbose", false, "enable debug logging")
	flags.Bool("force-udp", false, "use UDP instead of TCP")
	flags.Bool("no-ping", false, "skip the reachability probe before connecting")
	flags.String("encoding", "UTF-8", "name/PIN field encoding")

	for _, name := range []string{"ip", "port", "timeout", "password", "verbose", "encoding"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
	viper.BindPFlag("force_udp", flags.Lookup("force-udp"))
	viper.BindPFlag("no_ping", flags.Lookup("no-ping"))

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(addUserCmd)
	rootCmd.AddCommand(deleteUserCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(logsAllCmd)
	rootCmd.AddCommand(clearLogsCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(doorStateCmd)
	rootCmd.AddCommand(writeLCDCmd)
	rootCmd.AddCommand(clearLCDCmd)
	rootCmd.AddCommand(getTemplatesCmd)
	rootCmd.AddCommand(getUserTemplateCmd)
	rootCmd.AddCommand(testVoiceCmd)
	rootCmd.AddCommand(enableDeviceCmd)
	rootCmd.AddCommand(disableDeviceCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(poweroffCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configResetCmd)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}
