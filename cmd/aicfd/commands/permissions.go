package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aicfd/aicfd/internal/app"
	"github.com/aicfd/aicfd/internal/permission"
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Manage per-platform consent: grant, revoke, list",
}

var permissionsGrantCmd = &cobra.Command{
	Use:   "grant <platform>",
	Short: "Grant explicit consent for a platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir, err := resolvedBaseDir()
		if err != nil {
			return err
		}
		a, err := app.New(baseDir)
		if err != nil {
			return err
		}
		if err := a.Permissions.Grant(args[0], permission.ConsentExplicit); err != nil {
			return err
		}
		fmt.Printf("granted %s\n", args[0])
		return nil
	},
}

var permissionsRevokeCmd = &cobra.Command{
	Use:   "revoke <platform>",
	Short: "Revoke consent for a platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir, err := resolvedBaseDir()
		if err != nil {
			return err
		}
		a, err := app.New(baseDir)
		if err != nil {
			return err
		}
		if err := a.Permissions.Revoke(args[0]); err != nil {
			return err
		}
		fmt.Printf("revoked %s\n", args[0])
		return nil
	},
}

var permissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every platform's current consent status",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir, err := resolvedBaseDir()
		if err != nil {
			return err
		}
		a, err := app.New(baseDir)
		if err != nil {
			return err
		}
		for _, entry := range a.Permissions.List() {
			fmt.Printf("%-16s %-8s %s\n", entry.Platform, entry.Status, entry.ConsentType)
		}
		return nil
	},
}

func init() {
	permissionsCmd.AddCommand(permissionsGrantCmd)
	permissionsCmd.AddCommand(permissionsRevokeCmd)
	permissionsCmd.AddCommand(permissionsListCmd)
}
