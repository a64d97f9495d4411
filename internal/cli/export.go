package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <category-sid>",
	Short: "Export a category's images as a zip archive",
	Args:  cobra.ExactArgs(1),
	Run:   runExport,
}

var exportOut string

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default <sid>.zip)")
}

func runExport(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	sid := args[0]
	out := exportOut
	if out == "" {
		out = sid + ".zip"
	}

	f, err := os.Create(out)
	if err != nil {
		exitError("failed to create %s: %v", out, err)
	}

	if err := c.Service.ExportZip(ctx, sid, f); err != nil {
		f.Close()
		os.Remove(out)
		exitError("export failed: %v", err)
	}
	if err := f.Close(); err != nil {
		exitError("failed to write %s: %v", out, err)
	}

	fmt.Printf("Exported category %s to %s\n", sid, out)
}
