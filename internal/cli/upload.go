package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"picsync/internal/core"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload local image files into the reserved upload bucket",
	Args:  cobra.MinimumNArgs(1),
	Run:   runUpload,
}

func runUpload(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	files := make([]core.UploadFile, 0, len(args))
	for _, arg := range args {
		data, err := os.ReadFile(arg)
		if err != nil {
			exitError("failed to read %s: %v", arg, err)
		}
		files = append(files, core.UploadFile{Name: filepath.Base(arg), Data: data})
	}

	result, err := c.Service.UploadFiles(ctx, c.Config.Owner, files)
	if err != nil {
		exitError("upload failed: %v", err)
	}
	printBatch(result)
}
