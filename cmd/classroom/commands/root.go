package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-classroom/internal/attempt"
	"github.com/p-n-ai/pai-classroom/internal/client"
	"github.com/p-n-ai/pai-classroom/internal/curriculum"
	"github.com/p-n-ai/pai-classroom/internal/grading"
	"github.com/p-n-ai/pai-classroom/internal/platform/cache"
	"github.com/p-n-ai/pai-classroom/internal/platform/config"
	"github.com/p-n-ai/pai-classroom/internal/platform/database"
	"github.com/p-n-ai/pai-classroom/internal/platform/logging"
	"github.com/p-n-ai/pai-classroom/internal/storage"
)

// app holds the services shared by every subcommand.
type app struct {
	catalog  curriculum.Catalog
	attempts attempt.Service
	events   grading.EventLogger
	actor    string
	out      io.Writer
	closers  []func()

	apiURL string
	token  string
	direct bool
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a := &app{out: os.Stdout}
	defer a.close()
	return newRootCmd(a).ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "classroom",
		Short:        "Browse curriculums, review student rollups and grade attempts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.catalog != nil && a.attempts != nil {
				return nil
			}
			return a.wire(cmd.Context())
		},
	}
	root.SetOut(a.out)

	root.PersistentFlags().StringVar(&a.apiURL, "api", "", "classroom API base URL (default $LEARN_CLIENT_API_URL)")
	root.PersistentFlags().StringVar(&a.token, "token", "", "API bearer token (default $LEARN_CLIENT_TOKEN)")
	root.PersistentFlags().BoolVar(&a.direct, "direct", false, "use local curriculum files and the PostgreSQL store instead of the API")

	root.AddCommand(
		curriculumsCmd(a),
		treeCmd(a),
		reportCmd(a),
		showCmd(a),
		gradeCmd(a),
		uploadCmd(a),
		finalizeCmd(a),
	)
	return root
}

// wire builds the services from LEARN_ configuration and flags.
func (a *app) wire(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(os.Stderr, cfg.Log)
	a.actor = cfg.Client.Actor

	if a.direct {
		return a.wireDirect(ctx, cfg)
	}

	apiURL := cfg.Client.APIURL
	if a.apiURL != "" {
		apiURL = a.apiURL
	}
	token := cfg.Client.Token
	if a.token != "" {
		token = a.token
	}
	c := client.New(apiURL, token, client.WithTimeout(cfg.Client.Timeout))
	a.attempts = c
	a.catalog = c
	a.events = grading.NopEventLogger{}

	if cfg.Cache.Enabled {
		kv, err := cache.New(ctx, cfg.Cache.URL, "classroom:")
		if err != nil {
			slog.Warn("catalog cache unavailable, continuing without it", "error", err)
			return nil
		}
		a.closers = append(a.closers, func() { _ = kv.Close() })
		a.catalog = curriculum.NewCachedCatalog(c, kv, cfg.Cache.TTL)
	}
	return nil
}

func (a *app) wireDirect(ctx context.Context, cfg *config.Config) error {
	loader, err := curriculum.NewLoader(cfg.CurriculumPath)
	if err != nil {
		return fmt.Errorf("load curriculum: %w", err)
	}
	blobs, err := storage.NewFSStore(cfg.Store.BlobPath)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	store, err := attempt.NewPostgresStore(db.Pool, blobs)
	if err != nil {
		return err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	a.catalog = loader
	a.attempts = store
	a.events = grading.NewPostgresEventLogger(db.Pool)
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) workflow(ctx context.Context, attemptID string) (*grading.Workflow, error) {
	return grading.Load(ctx, grading.Config{Service: a.attempts, Events: a.events, Actor: a.actor}, attemptID)
}
