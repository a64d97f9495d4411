// Package cli implements the command-line interface for picsync.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"picsync/internal/blob"
	"picsync/internal/config"
	"picsync/internal/core"
	"picsync/internal/embed"
	"picsync/internal/search"
	"picsync/internal/store"
	"picsync/internal/token"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config  *config.Config
	Store   *store.Store
	Blobs   blob.Store
	Index   search.Index
	Issuer  *token.Issuer
	Service *core.Service
	Logger  *slog.Logger
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initContext initializes config and the metadata store
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	return &cmdContext{Config: cfg, Store: st, Logger: logger}
}

// initFullContext initializes config, store, blob backend, the index
// client, and the service
func initFullContext() *cmdContext {
	c := initContext()

	blobs, err := openBlobStore(c.Config)
	if err != nil {
		c.Close()
		exitError("failed to open object store: %v", err)
	}
	c.Blobs = blobs

	index, err := search.NewClient(c.Config.Search.URL, c.Config.Search.Class, c.Logger)
	if err != nil {
		c.Close()
		exitError("failed to create index client: %v", err)
	}
	c.Index = index

	embedder := embed.NewClient(
		c.Config.Embed.Endpoint, c.Config.Embed.APIKey, c.Config.Embed.Dimensions, c.Logger)

	c.Issuer = token.NewIssuer(
		c.Config.Token.Secret, time.Duration(c.Config.Token.TTLHours)*time.Hour)

	c.Service = core.New(c.Store, blobs, index, embedder, c.Issuer, c.Logger)
	return c
}

// openBlobStore builds the configured object-store backend.
func openBlobStore(cfg *config.Config) (blob.Store, error) {
	switch cfg.Blob.Backend {
	case "fs", "":
		return blob.NewFSStore(cfg.BlobsPath(), cfg.Blob.Endpoint, cfg.Blob.Container)
	case "s3":
		return blob.NewS3Store(context.Background(), blob.S3Options{
			Region:         cfg.Blob.Region,
			Bucket:         cfg.Blob.Container,
			BaseEndpoint:   cfg.Blob.S3URL,
			AccessKey:      cfg.Blob.AccessKey,
			SecretKey:      cfg.Blob.SecretKey,
			PublicEndpoint: cfg.Blob.Endpoint,
		})
	case "memory":
		return blob.NewMemStore(cfg.Blob.Endpoint, cfg.Blob.Container), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Blob.Backend)
	}
}

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "picsync",
	Short: "Image catalog content synchronization",
	Long: `picsync keeps an image catalog's metadata store, object store, and
vector search index consistent. Categories group images; images are ingested
from transient or external URLs into the object store, embedded, and made
searchable.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(reconcileCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
