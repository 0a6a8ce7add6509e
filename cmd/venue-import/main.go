// venue-import: loads venues from a JSON file into the SQLite venue store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/teslashibe/go-wayfind/internal/log"
	"github.com/teslashibe/go-wayfind/pkg/venue"
)

var (
	in = flag.String("in", "venues.json", "Venue JSON file to import")
	db = flag.String("db", "venues.db", "SQLite database to import into")
)

func main() {
	flag.Parse()
	log.Init("info")

	n, err := importVenues(context.Background(), *in, *db)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("import complete", "venues", n, "db", *db)
}

func importVenues(ctx context.Context, in, db string) (int, error) {
	venues, err := venue.ReadFile(in)
	if err != nil {
		return 0, err
	}

	store, err := venue.OpenSQLite(db)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	version, _, err := store.MigrateVersion()
	if err != nil {
		return 0, err
	}
	log.Debug("schema ready", "version", version)

	for _, v := range venues {
		if err := store.Save(ctx, v); err != nil {
			return 0, fmt.Errorf("save venue %q: %w", v.ID, err)
		}
		log.Info("imported venue", "venue", v.ID, "beacons", len(v.Beacons), "targets", len(v.Targets))
	}
	return len(venues), nil
}
