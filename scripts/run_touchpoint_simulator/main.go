package main

import (
	"flag"
	"os"

	"journeys/simulator"

	log "github.com/sirupsen/logrus"
)

// Writes a synthetic touchpoints file for local runs of the journeys server.
// ./run_touchpoint_simulator --sessions=500 --format=xlsx --output=./data/touchpoints.xlsx
func main() {
	configFilePath := flag.String("config_filepath", "", "Optional yaml simulator config")
	seed := flag.Int64("seed", 0, "")
	sessions := flag.Int("sessions", 0, "")
	format := flag.String("format", simulator.FormatXLSX, "xlsx or csv")
	output := flag.String("output", "./data/touchpoints.xlsx", "")

	flag.Parse()

	log.SetFormatter(&log.JSONFormatter{})

	config := simulator.DefaultConfiguration()
	if *configFilePath != "" {
		fileConfig, err := simulator.LoadConfigFromFile(*configFilePath)
		if err != nil {
			log.WithError(err).Fatal("Failed to load simulator config.")
		}
		config = *fileConfig
	}
	if *seed != 0 {
		config.Seed = *seed
	}
	if *sessions != 0 {
		config.Sessions = *sessions
	}
	if err := config.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid simulator config.")
	}

	rows := simulator.Generate(&config)

	file, err := os.Create(*output)
	if err != nil {
		log.WithError(err).Fatal("Failed to create output file.")
	}
	defer file.Close()

	if err := simulator.Write(file, rows, *format); err != nil {
		log.WithError(err).Fatal("Failed to write touchpoints.")
	}
	log.WithFields(log.Fields{"output": *output, "touchpoints": len(rows),
		"sessions": simulator.SessionCount(rows)}).Info("Touchpoints written.")
}
