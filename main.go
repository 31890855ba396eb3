package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	actionx "github.com/prachk/cardvoice-resolution-agent/agent/action"
	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
	directoryx "github.com/prachk/cardvoice-resolution-agent/agent/directory"
	progressx "github.com/prachk/cardvoice-resolution-agent/agent/progress"
	resolutionx "github.com/prachk/cardvoice-resolution-agent/agent/resolution"
	statex "github.com/prachk/cardvoice-resolution-agent/agent/state"
	configx "github.com/prachk/cardvoice-resolution-agent/pkg/config"
	_ "github.com/prachk/cardvoice-resolution-agent/pkg/logger/autoload"
	speechx "github.com/prachk/cardvoice-resolution-agent/pkg/speech"
	vapix "github.com/prachk/cardvoice-resolution-agent/pkg/vapi"
	serverx "github.com/prachk/cardvoice-resolution-agent/server"
)

type AppConfig struct {
	Port         int           `envconfig:"PORT" default:"3000"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" split_words:"true" default:"3s"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")

	dirCfg := configx.MustNew[directoryx.Config]("DIRECTORY")
	dir, err := directoryx.Open(*dirCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open customer directory")
	}

	store := newStore()
	reconciler := progressx.NewReconciler(store)

	executor, err := actionx.New(dir)
	if err != nil {
		log.Fatal().Err(err).Msg("build action executor")
	}

	handler := &serverx.Handler{Dir: dir}

	svcCfg := resolutionx.Config{PollInterval: appCfg.PollInterval}

	// Speech and telephony are optional. Without keys the server still
	// serves intake, actions, and summaries.
	if speechCfg, err := configx.New[speechx.Config]("OPENAI"); err == nil {
		speech, err := speechx.NewClient(*speechCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("build speech client")
		}
		handler.STT = speech
		handler.TTS = speech
	} else {
		log.Warn().Msg("speech disabled: OPENAI_API_KEY is not set")
	}

	var phone *vapix.Client
	if vapiCfg, err := configx.New[vapix.Config]("VAPI"); err == nil {
		phone = vapix.MustNew(*vapiCfg)
		svcCfg.AssistantID = vapiCfg.AssistantID
		svcCfg.PhoneNumberID = vapiCfg.PhoneNumberID
		handler.WebhookSecret = vapiCfg.WebhookSecret
	} else {
		log.Warn().Msg("telephony disabled: VAPI_API_KEY is not set")
	}

	svc, err := resolutionx.New(store, dir, handler.STT, telephonyOrNil(phone), reconciler, executor, svcCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build resolution service")
	}
	handler.Service = svc

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", appCfg.Port),
		Handler:           serverx.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", appCfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("server stopped")
}

func newStore() statex.Store {
	redisCfg := configx.MustNew[statex.RedisConfig]("REDIS")
	if redisCfg.Addr == "" {
		return statex.NewMemoryStore()
	}
	store, err := statex.NewRedisStore(*redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect session store")
	}
	log.Info().Str("addr", redisCfg.Addr).Msg("using redis session store")
	return store
}

// telephonyOrNil keeps a typed-nil *vapix.Client from leaking into the
// Telephony interface value.
func telephonyOrNil(c *vapix.Client) contractx.Telephony {
	if c == nil {
		return nil
	}
	return c
}
