package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dbtune-service/service/api"
	"github.com/dbtune-service/service/config"
	"github.com/dbtune-service/service/snapshot"
	"github.com/dbtune-service/service/storage"
	"github.com/dbtune-service/service/worker"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	addr := flag.String("addr", "", "Listen address, overrides the config file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		log.WithError(err).Fatal("Invalid log level")
	}
	log.SetLevel(level)

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	db, err := storage.NewDatabase(&cfg.PostgreSQL)
	if err != nil {
		log.WithError(err).Fatal("Failed to create database")
	}
	if err := db.Connect(); err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := storage.RunMigrations(db.DB()); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	validator, err := snapshot.NewValidator()
	if err != nil {
		log.WithError(err).Fatal("Failed to compile snapshot schemas")
	}

	jobs := worker.New(db, nil, time.Duration(cfg.ResultRetention), log)

	server := api.NewServer(&cfg.Server, db, validator, jobs, log)

	// The server fans task updates out to WebSocket clients.
	jobs.SetNotifier(server)
	jobs.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start API server")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithField("signal", sig.String()).Info("Shutting down")

	// Drain the worker first so late task updates are not broadcast
	// through a server that is already shutting down.
	jobs.Stop()
	if err := server.Stop(); err != nil {
		log.WithError(err).Error("Failed to stop API server")
	}
}
