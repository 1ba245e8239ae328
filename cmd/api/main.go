package main

import (
	"context"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/config"
	"github.com/airenas/transcribo/internal/pkg/pipeline"
	"github.com/airenas/transcribo/internal/pkg/postgres"
	"github.com/airenas/transcribo/internal/pkg/status"
	"github.com/airenas/transcribo/internal/pkg/transcribeservice"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &transcribeservice.Data{}
	data.Port = cfg.GetInt("port")

	pCfg, err := config.FromViper(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't read pipeline config")
	}
	data.JobTimeout = pCfg.JobTimeout

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	if cfg.GetBool("db.log") {
		addDBLog(dbConfig)
	}

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	if cfg.GetBool("db.migrate") {
		if err := postgres.Migrate(ctx, dbPool); err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't migrate db")
		}
	}

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.DB = db

	data.MsgSender, err = postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	statusService, err := status.NewService(db, data.MsgSender)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init status service")
	}
	statusQueue, err := status.NewQueue(statusService, pCfg.StatusQueueSize)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init status queue")
	}
	data.Reporter = statusQueue

	data.Runner, err = pipeline.Build(pCfg, statusQueue)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init pipeline")
	}

	qCtx, cancelFunc := context.WithCancel(ctx)
	doneCh := statusQueue.Start(qCtx)

	err = transcribeservice.StartWebServer(data)
	if err != nil {
		goapp.Log.Error().Err(err).Msg("can't start web server")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

func addDBLog(dbConfig *pgxpool.Config) {
	logFunc := func(msg string) { goapp.Log.Debug().Msg(msg) }
	dbConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		logFunc("before connect")
		return nil
	}
	dbConfig.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		logFunc("after connect")
		return nil
	}
	dbConfig.BeforeAcquire = func(ctx context.Context, c *pgx.Conn) bool {
		logFunc("before acquire")
		return true
	}
	dbConfig.AfterRelease = func(c *pgx.Conn) bool {
		logFunc("after release")
		return true
	}
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
\__/_/   \__,_/_/ /_/____/\___/_/  /_/_.___/\____/  

                _ 
  ____ _____  (_)
 / __ ` + "`" + `/ __ \/ / 
/ /_/ / /_/ / /  
\__,_/ .___/_/   v: %s
    /_/          

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/transcribo"))
}
