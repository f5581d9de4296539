package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	actionx "github.com/tgtg-tools/bagbot/action"
	webhookx "github.com/tgtg-tools/bagbot/action/webhook"
	calendarx "github.com/tgtg-tools/bagbot/pkg/calendar"
	configx "github.com/tgtg-tools/bagbot/pkg/config"
	_ "github.com/tgtg-tools/bagbot/pkg/logger/autoload"
	"github.com/tgtg-tools/bagbot/session"
	tgtgx "github.com/tgtg-tools/bagbot/tgtg"
)

type AppConfig struct {
	// Optional single global fallback client for users with no stored
	// session.
	AccessToken  string `split_words:"true"`
	RefreshToken string `split_words:"true"`
	Cookie       string `split_words:"true"`

	CredentialsDriver string `split_words:"true" default:"file"`
	CredentialsFile   string `split_words:"true" default:"user_credentials.json"`
	PostgresDSN       string `envconfig:"POSTGRES_DSN"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")
	tgtgCfg := configx.MustNew[tgtgx.Config]("TGTG")
	loginCfg := configx.MustNew[actionx.LoginConfig]("LOGIN")
	calendarCfg := configx.MustNew[calendarx.Config]("CALENDAR")
	webhookCfg := configx.MustNew[webhookx.Config]("WEBHOOK")

	store, cleanup, err := newStore(appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize the credential store")
	}
	defer cleanup()

	factory := func(creds tgtgx.Credentials) *tgtgx.Client {
		return tgtgx.New(*tgtgCfg, creds)
	}

	var opts []session.ManagerOption
	fallback := tgtgx.Credentials{
		AccessToken:  appCfg.AccessToken,
		RefreshToken: appCfg.RefreshToken,
		Cookie:       appCfg.Cookie,
	}
	if fallback.Valid() {
		log.Info().Msg("global fallback credentials configured")
		opts = append(opts, session.WithFallback(fallback))
	}
	manager := session.NewManager(store, factory, opts...)

	publisher := calendarx.MustNew(*calendarCfg)
	if publisher == nil {
		log.Info().Msg("calendar publisher not configured, reminders are format-only")
	}

	dispatcher := actionx.NewDispatcher(manager)
	actionx.RegisterAll(dispatcher, manager, publisher, *loginCfg)

	server := webhookx.NewServer(*webhookCfg, dispatcher)
	go func() {
		log.Info().Str("address", webhookCfg.ListenAddress).Strs("actions", dispatcher.ActionNames()).Msg("action server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("action server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	if err := server.Shutdown(); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
	}
}

// newStore selects the credential store driver from configuration.
func newStore(cfg *AppConfig) (session.Store, func(), error) {
	switch cfg.CredentialsDriver {
	case "file":
		store, err := session.NewFileStore(cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := session.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, errors.New("unknown credentials driver: " + cfg.CredentialsDriver)
	}
}
