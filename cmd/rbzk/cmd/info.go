package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/shqear93/rbzk"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show device identity and capacity information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(zk *rbzk.ZK) error {
			rows := [][]string{}
			add := func(label string, get func() (string, error)) {
				v, err := get()
				if err != nil {
					v = fmt.Sprintf("<error: %v>", err)
				}
				rows = append(rows, []string{label, v})
			}
			add("Firmware Version", zk.GetFirmwareVersion)
			add("Serial Number", zk.GetSerialNumber)
			add("MAC", zk.GetMAC)
			add("Device Name", zk.GetDeviceName)
			add("Platform", zk.GetPlatform)
			add("Face Version", zk.GetFaceVersion)
			add("Fingerprint Version", zk.GetFingerprintVersion)
			add("Extend Fmt", zk.GetExtendFmt)

			counts, err := zk.ReadSizes()
			if err != nil {
				return err
			}
			rows = append(rows,
				[]string{"Users", fmt.Sprintf("%d / %d (avail %d)", counts.Users, counts.UsersCap, counts.UsersAvail)},
				[]string{"Fingers", fmt.Sprintf("%d (avail %d)", counts.Fingers, counts.FingersAvail)},
				[]string{"Attendance Records", fmt.Sprintf("%d / %d (avail %d)", counts.Records, counts.RecordsCap, counts.RecordsAvail)},
				[]string{"Cards", fmt.Sprintf("%d", counts.Cards)},
				[]string{"Faces", fmt.Sprintf("%d / %d", counts.Faces, counts.FacesCap)},
			)

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Field", "Value"})
			table.AppendBulk(rows)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.Render()
			return nil
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Ask the device to reload its internal caches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(zk *rbzk.ZK) error {
			return zk.RefreshData()
		})
	},
}
