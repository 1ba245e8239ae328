package main

import (
	"context"
	"os"
	"time"

	aclean "github.com/airenas/async-api/pkg/clean"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/clean"
	"github.com/airenas/transcribo/internal/pkg/postgres"
	"github.com/airenas/transcribo/internal/pkg/tempfs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &clean.Data{}
	data.Port = cfg.GetInt("port")

	ctx := context.Background()

	workDir := cfg.GetString("pipeline.workDir")
	if workDir == "" {
		workDir = os.TempDir()
	}
	dirs, err := tempfs.NewDirs(workDir)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init work dirs")
	}
	dirs.WithExpire(cfg.GetDuration("timer.expire"))
	data.Cleaner = dirs
	data.AllCleaner = dirs

	timers := []*aclean.TimerData{{IDsProvider: dirs, RunEvery: cfg.GetDuration("timer.runEvery"), Cleaner: dirs}}
	goapp.Log.Info().Str("dir", workDir).Dur("duration", cfg.GetDuration("timer.expire")).Msg("temp expire")

	if statusExpire := cfg.GetDuration("timer.statusExpire"); statusExpire > 0 {
		dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init db pool")
		}
		dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init db pool")
		}
		defer dbPool.Close()

		dbCleaner, err := postgres.NewCleaner(dbPool)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init db cleaner")
		}
		idsProvider, err := postgres.NewDBIdsProvider(dbPool, statusExpire)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init IDs provider")
		}
		cleaner := &aclean.CleanerGroup{}
		cleaner.Jobs = append(cleaner.Jobs, dbCleaner)
		timers = append(timers, &aclean.TimerData{IDsProvider: idsProvider, RunEvery: cfg.GetDuration("timer.runEvery"),
			Cleaner: cleaner})
		goapp.Log.Info().Dur("duration", statusExpire).Msg("status expire")
	} else {
		goapp.Log.Info().Msg("no timer.statusExpire, status records are kept")
	}

	printBanner()

	ctxTimer, cancelFunc := context.WithCancel(ctx)
	var doneChs []<-chan struct{}
	for _, td := range timers {
		doneCh, err := aclean.StartCleanTimer(ctxTimer, td)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't start timer")
		}
		doneChs = append(doneChs, doneCh)
	}
	err = clean.StartWebServer(data)
	if err != nil {
		goapp.Log.Error().Err(err).Msg("can't start web server")
	}
	cancelFunc()
	timeout := time.After(time.Second * 15)
	for _, doneCh := range doneChs {
		select {
		case <-doneCh:
		case <-timeout:
			goapp.Log.Warn().Msg("Timeout gracefull shutdown")
			return
		}
	}
	goapp.Log.Info().Msg("All code returned. Now exit. Bye")
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

        __                
  _____/ /__  ____ _____  
 / ___/ / _ \/ __ ` + "`" + `/ __ \ 
/ /__/ /  __/ /_/ / / / / 
\___/_/\___/\__,_/_/ /_/   v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/transcribo"))
}
