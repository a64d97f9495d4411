package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"picsync/internal/gc"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Hard-delete flagged rows and remove orphaned blobs and documents",
	Long: `Reconcile the three stores: hard-delete rows flagged for deletion,
then remove object-store blobs and index documents no longer referenced by
any image row. Safe to run repeatedly; normally invoked on a schedule.`,
	Run: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	result, err := gc.New(c.Store, c.Blobs, c.Index, c.Logger).Run(ctx)
	if err != nil {
		exitError("reconcile failed: %v", err)
	}

	fmt.Printf("Rows hard-deleted:  %d\n", result.RowsDeleted)
	fmt.Printf("Live paths:         %d\n", result.LivePaths)
	fmt.Printf("Blobs removed:      %d of %d scanned\n", result.BlobsDeleted, result.BlobsScanned)
	fmt.Printf("Documents removed:  %d of %d scanned\n", result.DocsDeleted, result.DocsScanned)

	if len(result.PassErrors) > 0 {
		yellow := color.New(color.FgYellow)
		yellow.Printf("%d pass(es) reported errors:\n", len(result.PassErrors))
		for _, e := range result.PassErrors {
			yellow.Printf("  %s\n", e)
		}
	}
}
