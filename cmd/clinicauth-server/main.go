// Command clinicauth-server serves the clinic authentication API.
//
//	clinicauth-server -config clinicauth.yaml
//
// Settings may also come from .env.local and the environment; see
// internal/appconfig.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/clinicauth"
	"github.com/MrEthical07/clinicauth/httpapi"
	"github.com/MrEthical07/clinicauth/internal/appconfig"
	"github.com/MrEthical07/clinicauth/jwt"
	"github.com/MrEthical07/clinicauth/metrics/export/prometheus"
	"github.com/MrEthical07/clinicauth/notify"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := appconfig.Load(*configPath, ".env.local", ".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := cfg.Connect(ctx)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer backends.Close()

	var sender notify.Sender = notify.NewJSONWriter(os.Stdout)
	if smtpCfg, ok := cfg.Mailer(); ok {
		mailer, err := notify.NewSMTP(smtpCfg)
		if err != nil {
			log.Fatalf("smtp: %v", err)
		}
		sender = mailer
	}

	builder := clinicauth.New().
		WithConfig(cfg.Engine()).
		WithRedis(backends.Redis).
		WithAccountStore(backends.Store).
		WithNotifier(sender)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(clinicauth.NewJSONWriterSink(os.Stderr))
	}
	engine, err := builder.Build()
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	defer engine.Close()

	challenges, err := jwt.NewChallengeManager(cfg.Challenges())
	if err != nil {
		log.Fatalf("challenges: %v", err)
	}

	api := httpapi.New(engine, challenges, cfg.API())
	if cfg.Metrics.Enabled {
		api = api.WithMetricsHandler(prometheus.NewExporter(engine).Handler())
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("clinicauth listening on %s (store=%s)", cfg.Listen, cfg.Store)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("listen: %v", err)
	}
}
