package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"picsync/internal/config"
	"picsync/internal/search"
	"picsync/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new picsync catalog",
	Long: `Initialize a new picsync catalog in the current directory.
This creates a .picsync directory holding the configuration, the metadata
database, and (for the fs backend) the local blob directory.`,
	Run: runInit,
}

var (
	initOwner     string
	initBackend   string
	initContainer string
	initEndpoint  string
	initSearchURL string
	initClass     string
	initEmbedURL  string
	initDims      int
	initSecret    string
)

func init() {
	initCmd.Flags().StringVar(&initOwner, "owner", "", "catalog owner id")
	initCmd.Flags().StringVar(&initBackend, "blob-backend", "fs", "object store backend (fs|s3|memory)")
	initCmd.Flags().StringVar(&initContainer, "container", "images", "object store container name")
	initCmd.Flags().StringVar(&initEndpoint, "endpoint", "http://localhost:9000", "public object store endpoint")
	initCmd.Flags().StringVar(&initSearchURL, "search-url", "http://localhost:8080", "vector index URL")
	initCmd.Flags().StringVar(&initClass, "class", "CatalogImage", "index class name")
	initCmd.Flags().StringVar(&initEmbedURL, "embed-url", "http://localhost:8081", "vectorizer endpoint")
	initCmd.Flags().IntVar(&initDims, "dims", 512, "embedding dimensions")
	initCmd.Flags().StringVar(&initSecret, "secret", "", "access grant signing secret")
}

func runInit(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	if _, err := config.FindRoot(); err == nil {
		exitError("picsync catalog already exists")
	}
	if initSecret == "" {
		exitError("--secret is required")
	}

	fmt.Printf("Initializing picsync catalog...\n")
	fmt.Printf("Index URL: %s\n", initSearchURL)

	cfg, err := config.Initialize(&config.Config{
		Owner: initOwner,
		Blob: config.BlobConfig{
			Backend:   initBackend,
			Container: initContainer,
			Endpoint:  initEndpoint,
		},
		Search: config.SearchConfig{URL: initSearchURL, Class: initClass},
		Embed:  config.EmbedConfig{Endpoint: initEmbedURL, Dimensions: initDims},
		Token:  config.TokenConfig{Secret: initSecret},
	})
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		exitError("failed to initialize store: %v", err)
	}

	index, err := search.NewClient(cfg.Search.URL, cfg.Search.Class, nil)
	if err != nil {
		exitError("failed to create index client: %v", err)
	}
	if err := index.Ping(ctx); err != nil {
		fmt.Printf("Warning: index not reachable: %v\n", err)
	} else if err := index.EnsureSchema(ctx); err != nil {
		fmt.Printf("Warning: failed to ensure index schema: %v\n", err)
	}

	fmt.Printf("Initialized empty picsync catalog in %s\n", cfg.Path())
}
