package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"studygroup/internal/config"
	"studygroup/internal/docstore"
)

const connectTimeout = 10 * time.Second

// Open connects the configured document store. Failures are logged and never fatal:
// a backend that was constructed but not reached is returned as is, so the driver can
// recover later; a backend that could not be constructed becomes docstore.Unavailable.
func Open(ctx context.Context, cfg config.App, log zerolog.Logger) docstore.Store {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.StoreBackend {
	case "memory":
		log.Warn().Msg("using in-memory document store, data is lost on restart")
		return docstore.NewMemory()

	case "postgres":
		pg, err := docstore.NewPostgres(ctx, cfg.DatabaseURL)
		if pg == nil {
			log.Error().Err(err).Msg("postgres not configured")
			return docstore.Unavailable{Cause: err}
		}
		if err != nil {
			log.Warn().Err(err).Msg("postgres not reachable, serving 503 until it is")
			return pg
		}
		if err := pg.EnsureCollections(ctx, cfg.AssignmentsCollection, cfg.SubmissionsCollection); err != nil {
			if !errors.Is(err, docstore.ErrUnavailable) {
				log.Error().Err(err).Msg("create collections failed")
				return docstore.Unavailable{Cause: err}
			}
			log.Warn().Err(err).Msg("create collections failed, retrying on first use")
			return pg
		}
		log.Info().Msg("postgres document store ready")
		return pg

	default:
		m, err := docstore.NewMongo(ctx, cfg.MongoURI, cfg.DBName)
		if m == nil {
			log.Error().Err(err).Msg("mongo not configured")
			return docstore.Unavailable{Cause: err}
		}
		if err != nil {
			log.Warn().Err(err).Msg("mongo not reachable, serving 503 until it is")
			return m
		}
		log.Info().Str("db", cfg.DBName).Msg("connected to MongoDB")
		return m
	}
}
