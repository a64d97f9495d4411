package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"picsync/internal/core"
	"picsync/internal/models"
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage catalog categories",
}

var categoryCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a category, optionally ingesting images",
	Args:  cobra.ExactArgs(1),
	Run:   runCategoryCreate,
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live categories with preview URLs",
	Run:   runCategoryList,
}

var categoryRmCmd = &cobra.Command{
	Use:   "rm <sid>",
	Short: "Soft-delete a category and its images",
	Args:  cobra.ExactArgs(1),
	Run:   runCategoryRm,
}

var (
	categoryTopic      string
	categoryDifficulty string
	categoryImages     []string
	categoryPage       int
	categoryPerPage    int
	categoryHard       bool
)

func init() {
	categoryCreateCmd.Flags().StringVar(&categoryTopic, "topic", "", "category topic")
	categoryCreateCmd.Flags().StringVar(&categoryDifficulty, "difficulty", "", "category difficulty")
	categoryCreateCmd.Flags().StringArrayVar(&categoryImages, "image", nil, "image source as title=url (repeatable)")
	categoryListCmd.Flags().IntVar(&categoryPage, "page", 1, "page number")
	categoryListCmd.Flags().IntVar(&categoryPerPage, "per-page", 20, "categories per page")
	categoryRmCmd.Flags().BoolVar(&categoryHard, "hard", false, "hard-delete immediately instead of flagging")

	categoryCmd.AddCommand(categoryCreateCmd)
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryRmCmd)
}

// parseSources parses repeated title=url flags.
func parseSources(specs []string) ([]core.ImageSource, error) {
	sources := make([]core.ImageSource, 0, len(specs))
	for _, spec := range specs {
		title, url, ok := strings.Cut(spec, "=")
		if !ok || title == "" || url == "" {
			return nil, fmt.Errorf("invalid image source %q, expected title=url", spec)
		}
		sources = append(sources, core.ImageSource{Title: title, URL: url})
	}
	return sources, nil
}

// printBatch reports a batch result in the add/rm coloring convention.
func printBatch(result *core.BatchResult) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, img := range result.Created {
		green.Printf("  added %s  %s\n", img.SID, img.ImgPath)
	}
	for _, f := range result.Failed {
		red.Printf("  failed %s: %s\n", f.URL, f.Reason)
	}
	fmt.Printf("%d added, %d failed\n", len(result.Created), len(result.Failed))
}

func runCategoryCreate(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	sources, err := parseSources(categoryImages)
	if err != nil {
		exitError("%v", err)
	}

	cat := &models.Category{
		Topic:      categoryTopic,
		Title:      args[0],
		Difficulty: categoryDifficulty,
		Owner:      c.Config.Owner,
	}
	result, err := c.Service.CreateCategory(ctx, cat, sources)
	if err != nil {
		exitError("failed to create category: %v", err)
	}

	fmt.Printf("Created category %s\n", cat.SID)
	printBatch(result)
}

func runCategoryList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	cats, err := c.Service.ListCategories(ctx, c.Config.Owner, categoryPage, categoryPerPage)
	if err != nil {
		exitError("failed to list categories: %v", err)
	}
	total, err := c.Service.CountCategories(ctx, c.Config.Owner)
	if err != nil {
		exitError("failed to count categories: %v", err)
	}

	cyan := color.New(color.FgCyan)
	for _, cat := range cats {
		cyan.Printf("%s  %s\n", cat.SID, cat.Title)
		fmt.Printf("    topic=%s difficulty=%s images=%d\n", cat.Topic, cat.Difficulty, cat.ImgNum)
		for _, url := range cat.PreviewURLs {
			fmt.Printf("    %s\n", url)
		}
	}
	fmt.Printf("%d of %d categories (page %d)\n", len(cats), total, categoryPage)
}

func runCategoryRm(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	sid := args[0]
	if categoryHard {
		if err := c.Service.HardDeleteCategory(ctx, sid); err != nil {
			exitError("failed to delete category: %v", err)
		}
		fmt.Printf("Deleted category %s\n", sid)
		return
	}
	if err := c.Service.SoftDeleteCategory(ctx, sid); err != nil {
		exitError("failed to delete category: %v", err)
	}
	fmt.Printf("Flagged category %s for deletion\n", sid)
}
