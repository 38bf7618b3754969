package main

import (
	"context"
	"flag"
	"os"

	C "journeys/config"
	"journeys/ingest"
	M "journeys/model"
	"journeys/report"
	"journeys/store"
	U "journeys/util"

	log "github.com/sirupsen/logrus"
)

// Builds journeys from the configured source once and writes the listing.
// ./run_journey_report --source_file=touchpoints.xlsx --campaign=spring --format=xlsx --output=report.xlsx
func main() {
	configFilePath := flag.String("config_filepath", "", "Optional yaml config file")
	env := flag.String("env", "", "")

	sourceType := flag.String("source_type", "", "disk, s3, gcs, postgres or bigquery")
	sourcePath := flag.String("source_path", "", "")
	sourceFile := flag.String("source_file", "", "")
	sourceBucket := flag.String("source_bucket", "", "")
	recordPolicy := flag.String("record_policy", "", "reject or skip malformed records")
	timezone := flag.String("timezone", "", "")

	campaign := flag.String("campaign", "", "")
	medium := flag.String("medium", "", "")
	content := flag.String("content", "", "")
	search := flag.String("search", "", "Session id or channel substring")

	format := flag.String("format", report.FormatJSON, "json or xlsx")
	output := flag.String("output", "", "Output file, stdout when empty")

	flag.Parse()

	config := &C.Configuration{
		AppName:      "run_journey_report",
		Env:          *env,
		SourceType:   *sourceType,
		SourcePath:   *sourcePath,
		SourceFile:   *sourceFile,
		SourceBucket: *sourceBucket,
		RecordPolicy: *recordPolicy,
		Timezone:     *timezone,
		// In-process cache is of no use for a single query.
		QueryCacheSize: -1,
	}

	err := C.Init(config, *configFilePath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize.")
	}
	defer C.SafeFlushSentryHook()

	ctx := context.Background()
	source, err := ingest.NewSourceFromConfig(ctx, C.GetConfig())
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize touchpoint source.")
	}

	journeyStore, err := store.NewFromConfig(source)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize journey store.")
	}

	snapshot, err := journeyStore.Rebuild(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to build journeys.")
	}

	query := M.JourneyQuery{
		Filter: M.NewFilterCriteria(*campaign, *medium, *content),
		Search: *search,
	}
	result, err := journeyStore.ListJourneys(query)
	if err != nil {
		log.WithError(err).Fatal("Failed to list journeys.")
	}
	filterValues, err := journeyStore.ListFilterValues()
	if err != nil {
		log.WithError(err).Fatal("Failed to list filter values.")
	}

	journeyReport := &report.JourneyReport{
		GeneratedAt:     U.TimeNowZ(),
		SnapshotVersion: snapshot.Version,
		Query:           query,
		Result:          result,
		FilterValues:    filterValues,
	}

	writer := os.Stdout
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			log.WithError(err).Fatal("Failed to create output file.")
		}
		defer file.Close()
		writer = file
	}

	if err := report.Write(writer, journeyReport, *format); err != nil {
		log.WithError(err).Fatal("Failed to write journey report.")
	}

	log.WithFields(log.Fields{"journeys": result.Stats.TotalJourneys,
		"skipped_records": snapshot.SkippedRecords}).Info("Journey report written.")
}
