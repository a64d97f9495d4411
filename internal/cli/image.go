package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Manage images within a category",
}

var imageAddCmd = &cobra.Command{
	Use:   "add <category-sid>",
	Short: "Add images to a category from URLs",
	Args:  cobra.ExactArgs(1),
	Run:   runImageAdd,
}

var imageRmCmd = &cobra.Command{
	Use:   "rm <sid>",
	Short: "Soft-delete an image",
	Args:  cobra.ExactArgs(1),
	Run:   runImageRm,
}

var imageUpdateCmd = &cobra.Command{
	Use:   "update <sid>",
	Short: "Update an image's title or source URL",
	Args:  cobra.ExactArgs(1),
	Run:   runImageUpdate,
}

var (
	imageSources  []string
	imageHard     bool
	imageNewTitle string
	imageNewURL   string
)

func init() {
	imageAddCmd.Flags().StringArrayVar(&imageSources, "image", nil, "image source as title=url (repeatable)")
	imageRmCmd.Flags().BoolVar(&imageHard, "hard", false, "hard-delete immediately instead of flagging")
	imageUpdateCmd.Flags().StringVar(&imageNewTitle, "title", "", "new title")
	imageUpdateCmd.Flags().StringVar(&imageNewURL, "url", "", "new source URL")

	imageCmd.AddCommand(imageAddCmd)
	imageCmd.AddCommand(imageRmCmd)
	imageCmd.AddCommand(imageUpdateCmd)
}

func runImageAdd(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	sources, err := parseSources(imageSources)
	if err != nil {
		exitError("%v", err)
	}
	if len(sources) == 0 {
		exitError("at least one --image is required")
	}

	result, err := c.Service.AddImages(ctx, args[0], c.Config.Owner, sources)
	if err != nil {
		exitError("failed to add images: %v", err)
	}
	printBatch(result)
}

func runImageRm(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	sid := args[0]
	if imageHard {
		if err := c.Service.HardDeleteImage(ctx, sid); err != nil {
			exitError("failed to delete image: %v", err)
		}
		fmt.Printf("Deleted image %s\n", sid)
		return
	}
	if err := c.Service.SoftDeleteImage(ctx, sid); err != nil {
		exitError("failed to delete image: %v", err)
	}
	fmt.Printf("Flagged image %s for deletion\n", sid)
}

func runImageUpdate(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	if imageNewTitle == "" && imageNewURL == "" {
		exitError("nothing to update: pass --title or --url")
	}

	img, err := c.Service.UpdateImage(ctx, args[0], imageNewTitle, imageNewURL)
	if err != nil {
		exitError("failed to update image: %v", err)
	}
	fmt.Printf("Updated image %s  %s\n", img.SID, img.ImgPath)
}
