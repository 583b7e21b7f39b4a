package cmd

import (
	"fmt"

	"github.com/greenstudio/greenstudio/internal/builder"
	"github.com/greenstudio/greenstudio/internal/cli"

	"github.com/spf13/cobra"
)

var flagRolesVerbose bool

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List builder roles",
	RunE:  runRoles,
}

func init() {
	rolesCmd.Flags().BoolVarP(&flagRolesVerbose, "verbose", "v", false, "Show the full system instruction for each role")
	rootCmd.AddCommand(rolesCmd)
}

func runRoles(_ *cobra.Command, _ []string) error {
	cfg := loadConfigOrDefault()
	current := resolveRole(cfg)

	rows := make([][]string, 0, len(builder.All()))
	for _, r := range builder.All() {
		name := string(r)
		if r == current {
			name = "*" + name
		}
		rows = append(rows, []string{name, builder.Describe(r)})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Builder roles",
		Headers: []string{"Role", "Description"},
		Rows:    rows,
	}))
	fmt.Println(cli.Muted("  * current role (--role or general.default_role)"))

	if flagRolesVerbose {
		for _, r := range builder.All() {
			fmt.Println()
			fmt.Printf("  %s\n", r)
			fmt.Println(indent(builder.Instruction(r)))
		}
	}
	return nil
}
