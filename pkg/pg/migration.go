package pg

import (
	_ "github.com/lib/pq"
	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/pressly/goose/v3"
)

func Migrate(cfg Config, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("applying migrations", "dir", dir, "database", cfg.Database)
	if err = goose.Up(db, dir); err != nil {
		return err
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "version", version)

	return nil
}
