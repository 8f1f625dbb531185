// seed-catalog loads DBMS knob and metric catalog fixtures into the
// database. Each fixture file describes one DBMS version:
//
//	{
//	  "dbms": {"type": 2, "version": "9.6"},
//	  "knobs": [ ... ],
//	  "metrics": [ ... ]
//	}
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/dbtune-service/service/config"
	"github.com/dbtune-service/service/storage"
	"github.com/dbtune-service/service/types"
)

type fixture struct {
	DBMS    types.DBMSCatalog      `json:"dbms"`
	Knobs   []*types.KnobCatalog   `json:"knobs"`
	Metrics []*types.MetricCatalog `json:"metrics"`
}

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	dir := flag.String("dir", "", "Catalog fixture directory, overrides the config file")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	catalogDir := cfg.CatalogDir
	if *dir != "" {
		catalogDir = *dir
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

	paths, err := filepath.Glob(filepath.Join(catalogDir, "*.json"))
	if err != nil {
		log.WithError(err).Fatal("Failed to list catalog fixtures")
	}
	if len(paths) == 0 {
		log.WithField("dir", catalogDir).Fatal("No catalog fixtures found")
	}

	ctx := context.Background()
	for _, path := range paths {
		if err := seedFixture(ctx, db, path, log); err != nil {
			log.WithError(err).WithField("file", path).Fatal("Failed to seed catalog fixture")
		}
	}

	log.WithField("files", len(paths)).Info("Catalog seeding complete")
}

func seedFixture(ctx context.Context, db *storage.Database, path string, log logrus.FieldLogger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixture: %w", err)
	}

	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to decode fixture: %w", err)
	}

	if err := db.UpsertDBMS(ctx, &f.DBMS); err != nil {
		return err
	}

	for _, k := range f.Knobs {
		k.DBMSID = f.DBMS.ID
		if err := db.UpsertKnob(ctx, k); err != nil {
			return err
		}
	}

	for _, m := range f.Metrics {
		m.DBMSID = f.DBMS.ID
		if err := db.UpsertMetric(ctx, m); err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"dbms":    f.DBMS.Key(),
		"knobs":   len(f.Knobs),
		"metrics": len(f.Metrics),
	}).Info("Seeded catalog")
	return nil
}
