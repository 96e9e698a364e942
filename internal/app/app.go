package app

import (
	"context"
	"log/slog"
	"time"

	httpapp "delivery_portal/internal/app/http"
	"delivery_portal/internal/config"
	"delivery_portal/internal/jobs"
	"delivery_portal/internal/lib/logger/sl"
	"delivery_portal/internal/mediastore"
	"delivery_portal/internal/repository"
	access "delivery_portal/internal/services/access_service"
	download "delivery_portal/internal/services/download_service"
	gallery "delivery_portal/internal/services/gallery_service"
	project "delivery_portal/internal/services/project_service"
	proposal "delivery_portal/internal/services/proposal_service"
	filestorage "delivery_portal/internal/storage/filestorage"
	"delivery_portal/internal/storage/memory"
	"delivery_portal/internal/storage/postgresql"
	redisapp "delivery_portal/internal/storage/redis"
	httprouters "delivery_portal/internal/transport/http"
)

type App struct {
	HTTPServer *httpapp.Server
	Pruner     *jobs.LedgerPruner

	log       *slog.Logger
	pruneSpec string
	closers   []func()
}

type stores struct {
	galleries repository.GalleryRepository
	projects  repository.ProjectRepository
	ledger    repository.AccessLedger
	grants    repository.GrantStore
}

func New(log *slog.Logger, cfg *config.Config) *App {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{log: log, pruneSpec: cfg.Jobs.LedgerPruneSpec}

	st := a.mustStores(ctx, cfg)

	var fetcher download.MediaFetcher
	if cfg.MediaStore.LocalDir != "" {
		local, err := filestorage.NewLocalFileStorage(cfg.MediaStore.LocalDir, cfg.MediaStore.BaseURL)
		if err != nil {
			panic(err)
		}
		fetcher = local
	} else {
		fetcher = mediastore.New(log, cfg.MediaStore.BaseURL, cfg.MediaStore.Timeout, cfg.MediaStore.Retries)
	}

	retries := cfg.Portal.UpdateRetries

	galleryService := gallery.NewGalleryService(log, st.galleries, retries)
	projectService := project.NewProjectService(log, st.projects, retries)
	proposalService := proposal.NewProposalService(log, st.projects, retries)
	accessService := access.NewAccessService(log, st.galleries, st.projects, st.grants, cfg.Portal.GrantTTL, retries)
	downloadService := download.NewDownloadService(log, st.galleries, st.projects, st.ledger, fetcher, cfg.Portal.DownloadWindow)

	routers := httprouters.NewRouter(
		log,
		galleryService,
		projectService,
		proposalService,
		accessService,
		downloadService,
		cfg.HTTP.SecureCookies,
	)

	a.HTTPServer = httpapp.New(log, cfg.HTTP, cfg.Admin.JWTSecret, routers)
	a.HTTPServer.BuildRouters()

	a.Pruner = jobs.NewLedgerPruner(log, st.ledger, cfg.Jobs.LedgerRetention)

	return a
}

// mustStores выбирает хранилища по конфигу. Токены доступа живут в Redis,
// если Redis подключён для журнала, иначе в памяти процесса.
func (a *App) mustStores(ctx context.Context, cfg *config.Config) stores {
	var (
		st stores
		pg *postgresql.Storage
	)

	if cfg.Storage == config.StoragePostgres || cfg.Ledger == config.StoragePostgres {
		var err error
		pg, err = postgresql.New(ctx, cfg.DSN)
		if err != nil {
			panic(err)
		}
		if err := pg.Migrate(ctx); err != nil {
			panic(err)
		}
		a.closers = append(a.closers, pg.Stop)
	}

	switch cfg.Storage {
	case config.StoragePostgres:
		st.galleries = repository.NewGalleryRepo(pg.DB())
		st.projects = repository.NewProjectRepo(pg.DB())
	default:
		mem := memory.New()
		st.galleries, st.projects = mem, mem
	}

	switch cfg.Ledger {
	case config.StoragePostgres:
		st.ledger = repository.NewLedgerRepo(pg.DB())
		st.grants = memory.NewGrantStore(cfg.Portal.GrantTTL)
	case config.LedgerRedis:
		client, err := redisapp.Connect(ctx, cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB)
		if err != nil {
			panic(err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.log.Warn("failed to close redis", sl.Err(err))
			}
		})
		st.ledger = repository.NewRedisLedger(client)
		st.grants = repository.NewRedisGrantRepo(client)
	default:
		st.ledger = memory.NewLedger()
		st.grants = memory.NewGrantStore(cfg.Portal.GrantTTL)
	}

	a.log.Info("storage configured",
		slog.String("storage", cfg.Storage),
		slog.String("ledger", cfg.Ledger),
	)

	return st
}

// MustRun запускает задачу очистки журнала и HTTP-сервер (блокирует)
func (a *App) MustRun() {
	if err := a.Pruner.Start(a.pruneSpec); err != nil {
		panic(err)
	}

	a.HTTPServer.MustRun()
}

func (a *App) Stop() {
	if err := a.HTTPServer.Stop(); err != nil {
		a.log.Error("failed to stop http server", sl.Err(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Pruner.Stop(ctx)

	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
