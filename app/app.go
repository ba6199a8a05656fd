// Package app assembles the prediction server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"lifeboat/config"
	"lifeboat/db"
	qhttp "lifeboat/http"
	"lifeboat/ml"
	"lifeboat/predictor"
)

type App struct {
	Model   ml.ModelInfo
	Service *predictor.Service
	Server  *qhttp.Server

	logger  *zap.Logger
	store   *db.Store
	watcher *ml.ArtifactWatcher
}

// New loads the model before anything else. A missing or invalid artifact
// returns a predictor.ErrModelUnavailable error and no server is built.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	classifier, info, err := ml.LoadModel(cfg.Model.Path)
	if err != nil {
		return nil, predictor.ModelUnavailable(err)
	}
	logger.Info("model loaded",
		zap.String("path", info.Path),
		zap.String("model_type", info.ModelType),
		zap.Int("trees", info.Trees),
		zap.String("sha256", info.SHA256),
	)

	if cfg.Model.CacheSize > 0 {
		cached, err := ml.NewCachedClassifier(classifier, cfg.Model.CacheSize)
		if err != nil {
			return nil, err
		}
		classifier = cached
	}

	service, err := predictor.NewService(classifier, logger.Named("predictor"))
	if err != nil {
		return nil, err
	}

	a := &App{Model: info, Service: service, logger: logger}

	var history qhttp.ModelHistory
	if cfg.Database.Path != "" {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.store = store
		if err := store.RecordModelLoad(ctx, info); err != nil {
			a.Close()
			return nil, fmt.Errorf("record model load: %w", err)
		}
		history = store
	}

	metrics := qhttp.NewMetrics()
	if cfg.Model.Watch {
		watcher, err := ml.WatchArtifact(cfg.Model.Path, logger, func(fsnotify.Event) {
			metrics.ObserveArtifactChange()
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("watch model artifact: %w", err)
		}
		a.watcher = watcher
	}

	handler := qhttp.NewHandler(service, info, history, metrics, logger.Named("http"))
	a.Server = qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		Timeout:        cfg.HTTP.Timeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, handler, logger.Named("http"))

	return a, nil
}

// Run serves until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Server.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (a *App) Close() error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
