package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"picsync/internal/core"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search images by text query",
	Args:  cobra.MinimumNArgs(1),
	Run:   runSearch,
}

var searchK int

func init() {
	searchCmd.Flags().IntVarP(&searchK, "limit", "k", core.DefaultSearchK, "number of results")
}

func runSearch(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	query := strings.Join(args, " ")
	imgs, err := c.Service.Search(ctx, query, searchK)
	if err != nil {
		exitError("search failed: %v", err)
	}

	if len(imgs) == 0 {
		fmt.Println("No results")
		return
	}

	cyan := color.New(color.FgCyan)
	for i, img := range imgs {
		cyan.Printf("%d. %s\n", i+1, img.Title)
		fmt.Printf("   sid=%s category=%s\n", img.SID, img.CategoryID)
		fmt.Printf("   %s\n", img.ImgPath)
	}
}
