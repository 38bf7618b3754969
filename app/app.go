package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	C "journeys/config"
	H "journeys/handler"
	"journeys/ingest"
	"journeys/store"
	U "journeys/util"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Flags left empty fall back to JOURNEYS_* environment, the config file and defaults, in that order.
// ./app --env=development --port=3000 --source_type=disk --source_path=./data --source_file=touchpoints.xlsx
// ./app --source_type=postgres --db_host=localhost --db_name=marketing --db_user=journeys --db_table=touchpoints
func main() {
	configFilePath := flag.String("config_filepath", "", "Optional yaml config file")

	env := flag.String("env", "", "development or production")
	port := flag.Int("port", 0, "")

	sourceType := flag.String("source_type", "", "disk, s3, gcs, postgres or bigquery")
	sourcePath := flag.String("source_path", "", "Directory or object prefix of the touchpoints file")
	sourceFile := flag.String("source_file", "", "Touchpoints file, .xlsx or .csv")
	sourceBucket := flag.String("source_bucket", "", "Bucket for s3 and gcs sources")
	sheetName := flag.String("sheet_name", "", "Sheet to read, first sheet when empty")
	awsRegion := flag.String("aws_region", "", "")

	dbHost := flag.String("db_host", "", "")
	dbPort := flag.Int("db_port", 0, "")
	dbUser := flag.String("db_user", "", "")
	dbName := flag.String("db_name", "", "")
	dbPass := flag.String("db_pass", "", "")
	dbTable := flag.String("db_table", "", "")

	bqProjectID := flag.String("bq_project_id", "", "")
	bqDataset := flag.String("bq_dataset", "", "")
	bqTable := flag.String("bq_table", "", "")

	recordPolicy := flag.String("record_policy", "", "reject or skip malformed records")
	timezone := flag.String("timezone", "", "Timezone for timestamps without offset")
	numSessionRoutines := flag.Int("num_session_routines", 0, "Sessions processed in parallel")
	refreshIntervalInSecs := flag.Int64("refresh_interval_in_secs", 0, "Periodic rebuild interval, disabled when 0")

	redisHost := flag.String("redis_host", "", "Shared query cache, disabled when empty")
	redisPort := flag.Int("redis_port", 0, "")
	queryCacheSize := flag.Int("query_cache_size", 0, "")

	sentryDSN := flag.String("sentry_dsn", "", "Sentry DSN")
	allowedOrigins := flag.String("allowed_origins", "", "Comma separated list of cors origins, all when empty")

	flag.Parse()

	config := &C.Configuration{
		Env:          *env,
		Port:         *port,
		SourceType:   *sourceType,
		SourcePath:   *sourcePath,
		SourceFile:   *sourceFile,
		SourceBucket: *sourceBucket,
		SheetName:    *sheetName,
		AWSRegion:    *awsRegion,
		DBInfo: C.DBConf{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Name:     *dbName,
			Password: *dbPass,
			Table:    *dbTable,
		},
		BigQuery: C.BigQueryConf{
			ProjectID: *bqProjectID,
			Dataset:   *bqDataset,
			Table:     *bqTable,
		},
		RecordPolicy:          *recordPolicy,
		Timezone:              *timezone,
		NumSessionRoutines:    *numSessionRoutines,
		RefreshIntervalInSecs: *refreshIntervalInSecs,
		RedisHost:             *redisHost,
		RedisPort:             *redisPort,
		QueryCacheSize:        *queryCacheSize,
		SentryDSN:             *sentryDSN,
		AllowedOrigins:        U.GetTokensFromStringListAsString(*allowedOrigins),
	}

	// Initialize configs and connections.
	err := C.Init(config, *configFilePath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize.")
		return
	}
	defer C.SafeFlushSentryHook()

	if !C.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := ingest.NewSourceFromConfig(ctx, C.GetConfig())
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize touchpoint source.")
		return
	}

	journeyStore, err := store.NewFromConfig(source)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize journey store.")
		return
	}

	// Serving starts only with a complete journey set.
	if _, err := journeyStore.Rebuild(ctx); err != nil {
		log.WithError(err).Fatal("Failed to build journeys.")
		return
	}
	store.SetStore(journeyStore)
	journeyStore.StartPeriodicRefresh(ctx, C.GetRefreshInterval())

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(C.GetConfig().Port),
		Handler: H.InitRouter(),
	}

	go func() {
		log.WithField("port", C.GetConfig().Port).Info("Starting journeys server.")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed.")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down journeys server.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shutdown server gracefully.")
	}
}
