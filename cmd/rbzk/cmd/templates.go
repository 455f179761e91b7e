package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/shqear93/rbzk"
	"github.com/spf13/cobra"
)

var getTemplatesCmd = &cobra.Command{
	Use:   "get-templates",
	Short: "List every fingerprint template on the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(zk *rbzk.ZK) error {
			templates, err := zk.GetTemplates()
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"UID", "Finger", "Valid", "Size"})
			for _, t := range templates {
				table.Append([]string{
					fmt.Sprintf("%d", t.UID),
					fmt.Sprintf("%d", t.FingerID),
					fmt.Sprintf("%v", t.Valid),
					humanize.Bytes(uint64(len(t.TemplateBytes))),
				})
			}
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.Render()
			return nil
		})
	},
}

var getUserTemplateCmd = &cobra.Command{
	Use:   "get-user-template",
	Short: "Download a single finger template for one user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetInt("uid")
		fingerID, _ := cmd.Flags().GetInt("finger-id")
		return withClient(func(zk *rbzk.ZK) error {
			t, err := zk.GetUserTemplate(uid, uint8(fingerID))
			if err != nil {
				return err
			}
			fmt.Printf("uid=%d finger=%d valid=%v size=%s\n", t.UID, t.FingerID, t.Valid, humanize.Bytes(uint64(len(t.TemplateBytes))))
			return nil
		})
	},
}

func init() {
	flags := getUserTemplateCmd.Flags()
	flags.Int("uid", 0, "device-assigned uid")
	flags.Int("finger-id", 0, "finger index (0-9)")
	getUserTemplateCmd.MarkFlagRequired("uid")
}
