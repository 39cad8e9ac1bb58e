package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vikasavnish/heirloom/internal/cache"
	"github.com/vikasavnish/heirloom/internal/config"
	"github.com/vikasavnish/heirloom/internal/db"
	"github.com/vikasavnish/heirloom/internal/logging"
	"github.com/vikasavnish/heirloom/internal/models"
	"github.com/vikasavnish/heirloom/internal/services"
	"github.com/vikasavnish/heirloom/internal/utils"
)

// app holds what the commands share once the root command has run.
type app struct {
	cfg *config.Config
	log *logrus.Logger
	db  *gorm.DB

	trees  services.TreeService
	people services.PersonService
	rels   services.RelationshipService
	search services.SearchService
}

var heirloom app

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "error:", err)

	// Rejected input exits 2, anything else 1.
	var domainErr *models.Error
	if errors.As(err, &domainErr) {
		os.Exit(2)
	}
	os.Exit(1)
}

// setup loads configuration and the logger. It runs before every command.
func (a *app) setup() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "warning: could not read .env:", err)
	}

	a.cfg = config.Load()
	if verbose {
		a.cfg.Log.Level = "debug"
	}
	a.log = logging.New(a.cfg.Log, os.Stderr)
	logging.Set(a.log)
}

// open connects the database and builds the services. Commands that do not
// touch storage never call it.
func (a *app) open() error {
	if a.db != nil {
		return nil
	}
	database, err := db.Connect(a.cfg.Database, a.log)
	if err != nil {
		return err
	}
	a.db = database

	var exports cache.ExportCache = cache.NoopExportCache{}
	if a.cfg.Redis.URL != "" {
		client, err := db.ConnectRedis(a.cfg.Redis)
		if err != nil {
			a.log.WithError(err).Warn("Redis unavailable, exports will not be cached")
		} else {
			exports = cache.NewRedisExportCache(client, a.cfg.Redis.ExportTTL)
		}
	}

	a.trees = services.NewTreeService(database, exports)
	a.people = services.NewPersonService(database, exports)
	a.rels = services.NewRelationshipService(database, exports)
	a.search = services.NewSearchService(database)
	return nil
}

// ctx returns the context every service call runs with: the acting
// user and the process logger.
func (a *app) ctx(parent context.Context) context.Context {
	ctx := utils.SetUserIDToContext(parent, userID)
	return utils.WithLogger(ctx, a.log.WithField("user_id", userID))
}
