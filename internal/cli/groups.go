package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(groupsCmd)
	groupsCmd.AddCommand(groupsListCmd)
	groupsCmd.AddCommand(groupsCreateCmd)
	groupsCmd.AddCommand(groupsActivateCmd)
	groupsCmd.AddCommand(groupsRenameCmd)
	groupsCmd.AddCommand(groupsDeleteCmd)
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage category groups",
	Long: `Manage category groups in the catalog service. Each group is a full set
of categories and rules; exactly one group is active at a time and feeds
both AI categorization and rule application.`,
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List category groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		groups, err := d.catalog.ListGroups(cmd.Context())
		if err != nil {
			return err
		}
		for _, g := range groups {
			marker := " "
			if g.IsActive {
				marker = "*"
			}
			rules := 0
			for _, c := range g.Categories {
				rules += len(c.Rules)
			}
			fmt.Printf("%s %s  %s  (%d categories, %d rules)\n", marker, g.ID, g.Name, len(g.Categories), rules)
		}
		return nil
	},
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a group seeded with the default categories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		g, err := d.catalog.CreateGroup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("created %s (%s)\n", g.Name, g.ID)
		return nil
	},
}

var groupsActivateCmd = &cobra.Command{
	Use:   "activate GROUP_ID",
	Short: "Make a group the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		if err := d.catalog.ActivateGroup(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("activated")
		return nil
	},
}

var groupsRenameCmd = &cobra.Command{
	Use:   "rename GROUP_ID NAME",
	Short: "Rename a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		g, err := d.catalog.RenameGroup(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("renamed to %s\n", g.Name)
		return nil
	},
}

var groupsDeleteCmd = &cobra.Command{
	Use:   "delete GROUP_ID",
	Short: "Delete a group and its rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		if err := d.catalog.DeleteGroup(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil
	},
}
