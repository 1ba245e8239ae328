package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/async-api/pkg/miniofs"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/config"
	"github.com/airenas/transcribo/internal/pkg/pipeline"
	"github.com/airenas/transcribo/internal/pkg/postgres"
	"github.com/airenas/transcribo/internal/pkg/status"
	"github.com/airenas/transcribo/internal/pkg/utils"
	"github.com/airenas/transcribo/internal/pkg/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &worker.ServiceData{}
	ctx := context.Background()

	pCfg, err := config.FromViper(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't read pipeline config")
	}

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}

	goapp.Log.Info().Int32("max_conn", dbConfig.MaxConns).Int32("min_conn", dbConfig.MinConns).Msg("db info")

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	data.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}
	data.WorkerCount = defaultV(cfg.GetInt("worker.count"), 2)
	data.Testing = cfg.GetBool("worker.testing")
	data.JobTimeout = defaultV(pCfg.JobTimeout, 90*time.Minute)

	sender, err := postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}
	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	statusService, err := status.NewService(db, sender)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init status service")
	}
	statusQueue, err := status.NewQueue(statusService, defaultV(pCfg.StatusQueueSize, 100))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init status queue")
	}
	data.Reporter = statusQueue

	if cfg.GetString("filer.url") != "" {
		data.Filer, err = miniofs.NewFiler(ctx, miniofs.Options{Bucket: defaultV(cfg.GetString("filer.bucket"), "transcripts"),
			URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key"),
			Secure: cfg.GetBool("filer.https")})
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init filer")
		}
	} else {
		goapp.Log.Info().Msg("no filer.url, transcripts are not archived")
	}

	data.Runner, err = pipeline.Build(pCfg, statusQueue)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init pipeline")
	}

	printBanner()

	go utils.RunPerfEndpoint(cfg.GetInt("debug.port"))

	ctx, cancelFunc := context.WithCancel(context.Background())
	qCtx, qCancelFunc := context.WithCancel(context.Background())
	qDoneCh := statusQueue.Start(qCtx)
	doneCh, err := worker.StartWorkerService(ctx, data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start worker service")
	}
	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All workers returned")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
	qCancelFunc()
	select {
	case <-qDoneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout status queue drain")
	}
}

func defaultV[T comparable](v, d T) T {
	var e T
	if v == e {
		return d
	}
	return v
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
   __                                  _ __         
  / /__________ _____  _______________(_) /_  ____  
 / __/ ___/ __ ` + "`" + `/ __ \/ ___/ ___/ ___/ / __ \/ __ \ 
/ /_/ /  / /_/ / / / (__  ) /__/ /  / / /_/ / /_/ / 
\__/_/   \__,_/_/ /_/____/\___/_/  /_/_.___/\____/  v: %s

                      __            
 _      ______  _____/ /_____  _____
| | /| / / __ \/ ___/ //_/ _ \/ ___/
| |/ |/ / /_/ / /  / ,< /  __/ /    
|__/|__/\____/_/  /_/|_|\___/_/     

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/transcribo"))
}
