package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"tunedeck/internal/auth"
	"tunedeck/internal/models"
	"tunedeck/internal/store"
)

const (
	demoEmail    = "demo@tunedeck.local"
	demoPassword = "demo123"
)

// seedTracks loads DATA_DIR/tracks.json into an empty tracks table.
func seedTracks(ctx context.Context, dataStore *store.Store, dataDir string, logger zerolog.Logger) error {
	count, err := dataStore.CountTracks(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	path := filepath.Join(dataDir, "tracks.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", path).Msg("Track catalogue is empty and no seed file was found")
			return nil
		}
		return fmt.Errorf("read track seed: %w", err)
	}

	var tracks []models.Track
	if err := json.Unmarshal(raw, &tracks); err != nil {
		return fmt.Errorf("decode track seed: %w", err)
	}
	if err := dataStore.UpsertTracks(ctx, tracks); err != nil {
		return fmt.Errorf("seed tracks: %w", err)
	}

	logger.Info().Int("tracks", len(tracks)).Str("path", path).Msg("Seeded track catalogue")
	return nil
}

type userCreator interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
}

func ensureDemoUser(ctx context.Context, users userCreator) error {
	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return err
	}
	_, err = users.CreateUser(ctx, models.User{
		Email:        demoEmail,
		PasswordHash: hash,
		Name:         "Demo",
		Role:         "user",
	})
	if err != nil && !errors.Is(err, store.ErrUserExists) {
		return fmt.Errorf("bootstrap demo user: %w", err)
	}
	return nil
}
