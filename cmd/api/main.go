package main

import (
	"context"
	"os"
	"os/signal"
	"perdecomp/cmd/internal/config"
	"perdecomp/cmd/internal/domain/perdcomp"
	"perdecomp/cmd/internal/domain/sqlite"
	"perdecomp/cmd/internal/domain/sqlite/repository"
	"perdecomp/cmd/internal/http/handler"
	authmiddleware "perdecomp/cmd/internal/http/middleware"
	"perdecomp/cmd/internal/infrastructure/aws/storage"
	"perdecomp/cmd/internal/infrastructure/infosimples"
	"perdecomp/cmd/internal/infrastructure/minhareceita"
	"perdecomp/cmd/internal/infrastructure/redis"
	"perdecomp/cmd/internal/service"
	"perdecomp/cmd/internal/service/jobs"
	"perdecomp/cmd/internal/utils"
	"perdecomp/cmd/internal/utils/uid"
	"perdecomp/cmd/internal/utils/validators"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"
)

const envVarsPrefix = "/perdecomp/prod/"

func main() {
	// Loads env vars depending on environment
	if os.Getenv("GO_ENV") == "production" {
		loadProdEnv() // AWS SSM Parameter Store
	} else {
		// .env is optional outside production
		if err := godotenv.Load(); err != nil {
			log.Warnf("no .env loaded: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log.SetLevel(cfg.LogLevel)

	validate := validator.New()
	validators.Register(validate)

	uid.Init(cfg.SnowflakeNode)
	if err := utils.InitSigningKey(cfg.JWTSecret); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init database
	db, err := sqlite.Init(sqlite.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		panic(err)
	}

	// Getting repos
	store := repository.NewTableStore(db)
	clientRepo := repository.NewClientRepository(store)
	snapshotRepo := repository.NewSnapshotRepository(store)
	factRepo := repository.NewFactRepository(store)
	legacyRepo := repository.NewLegacyRepository(store)
	dictionaryRepo := repository.NewDictionaryRepository(store)
	companyRepo := repository.NewCompanyRepository(db)

	// Getting services
	dictionaryService := service.NewDictionaryService(cfg.TaxonomySource, perdcomp.DefaultSeed(), dictionaryRepo)
	companyService := service.NewCompanyService(minhareceita.NewClient(""), companyRepo)
	identity := service.NewIdentityResolver(clientRepo, snapshotRepo, factRepo, legacyRepo)

	perdcompService := service.NewPerdcompService(
		newProvider(cfg),
		snapshotRepo,
		factRepo,
		legacyRepo,
		identity,
		dictionaryService.Taxonomy(),
		validate,
	)
	perdcompService.Companies = companyService

	if cfg.RedisAddr != "" {
		cache, err := redis.NewCardCache(cfg.RedisAddr, cfg.CardCacheTTL)
		if err != nil {
			panic(err)
		}
		defer cache.Close()
		perdcompService.Cache = cache
	}

	if cfg.S3Bucket != "" {
		archive, err := storage.NewCardArchive(ctx, cfg.S3Region, cfg.S3Bucket)
		if err != nil {
			panic(err)
		}
		perdcompService.Archive = archive
	}

	limiter := rate.NewLimiter(rate.Every(cfg.CompareInterval), 1)
	comparisonService := service.NewComparisonService(perdcompService, limiter, validate)

	// Background jobs
	go jobs.NewCompanyCacheCleaner(companyRepo).Start(ctx)
	if dictionaryService.Source() == config.TaxonomyStore {
		go jobs.NewDictionaryReloader(dictionaryService, cfg.DictionaryInterval).Start(ctx)
	}

	// Getting handlers
	perdcompRoutes := handler.NewPerdcompRoute(perdcompService, comparisonService, dictionaryService)
	utilRoutes := handler.NewUtilRoute(companyService)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("1M"))

	api := e.Group("/api", authmiddleware.NewAuthMiddleware())

	// PER/DCOMP
	api.POST("/perdcomp/lookup", perdcompRoutes.Lookup)
	api.POST("/perdcomp/comparativo", perdcompRoutes.Compare)
	api.GET("/perdcomp/verificar", perdcompRoutes.Verify)
	api.GET("/perdcomp/dicionario", perdcompRoutes.GetDictionary)
	api.POST("/perdcomp/dicionario/seed", perdcompRoutes.SeedDictionary)

	// Companies
	api.GET("/companies/:cnpj", utilRoutes.GetCompany)
	api.GET("/cnpj/:cnpj", utilRoutes.DescribeCNPJ)

	// Docker Compose healthcheck
	e.GET("/health", healthCheckRoute)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	if err := e.Start(cfg.HTTPAddr); err != nil && ctx.Err() == nil {
		panic(err)
	}
}

// newProvider returns nil when no token is configured, leaving lookups on
// stored data only.
func newProvider(cfg *config.Config) service.FilingsProvider {
	if cfg.InfosimplesToken == "" {
		log.Warn("INFOSIMPLES_TOKEN is not set, forced lookups will fail")
		return nil
	}

	policy := infosimples.DefaultRetryPolicy()
	policy.Attempts = cfg.RetryAttempts
	policy.Delays = cfg.RetryDelays

	client, err := infosimples.NewClient(infosimples.Options{
		BaseURL:         cfg.InfosimplesURL,
		Token:           cfg.InfosimplesToken,
		ProviderTimeout: cfg.ProviderTimeout,
		Retry:           policy,
	})
	if err != nil {
		panic(err)
	}
	return client
}

func loadProdEnv() {
	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion("us-east-2"))
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	client := ssm.NewFromConfig(cfg)
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(envVarsPrefix),
		WithDecryption: aws.Bool(true),
		Recursive:      aws.Bool(true),
	})

	prefixLength := len(envVarsPrefix)
	count := 0
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			log.Fatalf("unable to load prod environment, %v", err)
		}

		// Export vars
		for _, param := range out.Parameters {
			key := (*param.Name)[prefixLength:]
			if enverr := os.Setenv(key, *param.Value); enverr != nil {
				log.Fatalf("unable to set environment variable, %v", enverr)
			}
			count++
		}
	}
	log.Debugf("loaded %d prod environment variables", count)
}

func healthCheckRoute(c echo.Context) error {
	return c.String(200, "OK")
}
