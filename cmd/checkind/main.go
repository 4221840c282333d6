package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"checkind/internal/api"
	"checkind/internal/config"
	"checkind/internal/domain"
	"checkind/internal/notify"
	"checkind/internal/notify/bark"
	"checkind/internal/notify/wechatwork"
	"checkind/internal/routine"
	"checkind/internal/routine/kurobbs"
	"checkind/internal/runner"
	"checkind/internal/scheduler"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "path to YAML config file")
		addr    = flag.String("addr", "", "HTTP bind address (overrides config)")
		once    = flag.Bool("once", false, "run one manual check-in and exit")
		debug   = flag.Bool("debug", false, "enable pprof endpoints")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("validate config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	creds, err := config.ResolveCredentials(os.LookupEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve credentials")
	}

	rt := buildRoutine(cfg)
	channels := buildChannels(creds)
	if len(channels) == 0 {
		log.Warn().Msg("no notification channels configured, summaries will only be logged")
	}

	runTimeout, _ := cfg.ParsedRunTimeout()
	dispatchTimeout, _ := cfg.ParsedDispatchTimeout()
	dispatcher := notify.NewDispatcher(channels, dispatchTimeout)
	run := runner.New(rt, dispatcher, creds, runTimeout)

	if *once {
		res, err := run.Run(context.Background(), domain.Trigger{Origin: domain.OriginManual, At: time.Now()})
		if err != nil {
			log.Fatal().Err(err).Msg("manual run")
		}
		// The routine's own failure is already reflected in the
		// notification; the process still exits clean.
		log.Info().Str("status", string(res.Status)).Int("exit_code", res.ExitCode).Msg("manual run done")
		return
	}

	sched, err := scheduler.New(cfg.CronExpr, run, 15*time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("build scheduler")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go sched.Start(ctx)

	srv := &http.Server{Addr: cfg.Addr, Handler: api.NewServerWithDebug(run, sched, *debug)}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info().Msg("shutting down")
	sched.Stop()
	cancel()
	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	_ = srv.Shutdown(ctxTimeout)
}

func buildRoutine(cfg config.Config) routine.Routine {
	if cfg.Routine == "script" {
		return routine.Script{Command: cfg.Script.Command, Args: cfg.Script.Args}
	}
	return kurobbs.New()
}

// buildChannels constructs every channel whose credentials are complete.
// Missing keys skip the channel rather than failing the process.
func buildChannels(creds domain.Credentials) []notify.Channel {
	var channels []notify.Channel
	if creds.BarkDeviceKey != "" && creds.BarkServerURL != "" {
		channels = append(channels, bark.New(creds.BarkServerURL, creds.BarkDeviceKey))
	} else if creds.BarkDeviceKey != "" || creds.BarkServerURL != "" {
		log.Warn().Msg("incomplete bark credentials, channel skipped")
	}
	if creds.WechatWorkCorpID != "" && creds.WechatWorkSecret != "" &&
		creds.WechatWorkAgentID != "" && creds.WechatWorkUserID != "" {
		channels = append(channels, wechatwork.New(
			creds.WechatWorkCorpID, creds.WechatWorkSecret,
			creds.WechatWorkAgentID, creds.WechatWorkUserID))
	} else if creds.WechatWorkCorpID != "" || creds.WechatWorkSecret != "" ||
		creds.WechatWorkAgentID != "" || creds.WechatWorkUserID != "" {
		log.Warn().Msg("incomplete wechat work credentials, channel skipped")
	}
	return channels
}
