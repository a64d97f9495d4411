package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"picsync/internal/token"
)

var grantCmd = &cobra.Command{
	Use:   "grant [url]",
	Short: "Mint an access grant, optionally appended to an owned URL",
	Args:  cobra.MaximumNArgs(1),
	Run:   runGrant,
}

var grantPerms string

func init() {
	grantCmd.Flags().StringVar(&grantPerms, "perms", "r", "permissions (subset of rwdl)")
}

func runGrant(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()

	perms := token.ParsePermissions(grantPerms)

	if len(args) == 1 {
		url, err := c.Service.GrantURL(args[0], perms)
		if err != nil {
			exitError("failed to mint grant: %v", err)
		}
		fmt.Println(url)
		return
	}

	grant, err := c.Service.Grant(perms)
	if err != nil {
		exitError("failed to mint grant: %v", err)
	}
	fmt.Println(grant)
}
