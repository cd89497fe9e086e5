// Command migrate applies or rolls back the database schema.
//
//	migrate up
//	migrate down
package main

import (
	"flag"
	"fmt"
	"os"

	"hasker/backend/internal/config"
	"hasker/backend/internal/logging"
	"hasker/backend/internal/migrations"

	"github.com/sirupsen/logrus"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s up|down\n", os.Args[0])
	}
	flag.Parse()

	cfg, err := config.Load(".")
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	log := logging.New(cfg.AppEnv, cfg.LogLevel)

	switch flag.Arg(0) {
	case "up":
		err = migrations.Up(cfg.DatabaseURL, log)
	case "down":
		err = migrations.Down(cfg.DatabaseURL)
		if err == nil {
			log.Info("Database schema rolled back.")
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Fatal("Migration failed")
	}
}
