package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/shqear93/rbzk"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List all users on the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(zk *rbzk.ZK) error {
			users, err := zk.GetUsers()
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"UID", "User ID", "Name", "Privilege", "Card", "Group"})
			for _, u := range users {
				table.Append([]string{
					fmt.Sprintf("%d", u.UID),
					u.UserID,
					u.Name,
					privilegeName(u.Privilege),
					fmt.Sprintf("%d", u.Card),
					u.GroupID,
				})
			}
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.Render()
			return nil
		})
	},
}

func privilegeName(p uint8) string {
	switch int(p) {
	case rbzk.UserDefault:
		return "User"
	case rbzk.UserEnroller:
		return "Enroller"
	case rbzk.UserManager:
		return "Manager"
	case rbzk.UserAdmin:
		return "Admin"
	default:
		return fmt.Sprintf("%d", p)
	}
}

var addUserCmd = &cobra.Command{
	Use:   "add-user",
	Short: "Create or update a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetInt("uid")
		name, _ := cmd.Flags().GetString("name")
		privilege, _ := cmd.Flags().GetInt("privilege")
		password, _ := cmd.Flags().GetString("password")
		groupID, _ := cmd.Flags().GetString("group-id")
		userID, _ := cmd.Flags().GetString("user-id")
		card, _ := cmd.Flags().GetUint32("card")

		return withClient(func(zk *rbzk.ZK) error {
			return zk.SetUser(rbzk.User{
				UID:       uid,
				UserID:    userID,
				Name:      name,
				Privilege: uint8(privilege),
				Password:  password,
				GroupID:   groupID,
				Card:      card,
			})
		})
	},
}

func init() {
	flags := addUserCmd.Flags()
	flags.Int("uid", 0, "device-assigned uid (0 = allocate next free)")
	flags.String("name", "", "display name")
	flags.Int("privilege", rbzk.UserDefault, "privilege level (0=User 2=Enroller 6=Manager 14=Admin)")
	flags.String("password", "", "user password")
	flags.String("group-id", "", "group id")
	flags.String("user-id", "", "caller-assigned PIN2 (empty = allocate next free)")
	flags.Uint32("card", 0, "RFID card number")
}

var deleteUserCmd = &cobra.Command{
	Use:   "delete-user",
	Short: "Delete a user by uid",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := cmd.Flags().GetInt("uid")
		if err != nil {
			return err
		}
		return withClient(func(zk *rbzk.ZK) error {
			return zk.DeleteUser(uid)
		})
	},
}

func init() {
	deleteUserCmd.Flags().Int("uid", 0, "device-assigned uid to delete")
	deleteUserCmd.MarkFlagRequired("uid")
}
