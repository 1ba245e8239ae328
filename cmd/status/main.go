package main

import (
	"context"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/postgres"
	"github.com/airenas/transcribo/internal/pkg/statusservice"
	"github.com/airenas/transcribo/internal/pkg/utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/spf13/viper"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

type settings struct {
	port      int
	workers   int
	wsTimeout time.Duration
	debugPort int
}

func readSettings(cfg *viper.Viper) settings {
	return settings{
		port:      defaultV(cfg.GetInt("port"), 8000),
		workers:   defaultV(cfg.GetInt("worker.count"), 2),
		wsTimeout: defaultV(cfg.GetDuration("ws.timeout"), 30*time.Minute),
		debugPort: cfg.GetInt("debug.port"),
	}
}

func main() {
	goapp.StartWithDefault()

	printBanner()

	st := readSettings(goapp.Config)
	goapp.Log.Info().Int("port", st.port).Int("workers", st.workers).Dur("wsTimeout", st.wsTimeout).Msg("settings")

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(goapp.Config.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	goapp.Log.Info().Int32("max_conn", dbConfig.MaxConns).Int32("min_conn", dbConfig.MinConns).Msg("db info")

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	wsh := statusservice.NewWSConnKeeper(st.wsTimeout)
	data := &statusservice.Data{Port: st.port, DB: db, WSHandler: wsh}

	hData := &statusservice.HandlerData{DB: db, WorkerCount: st.workers, WSHandler: wsh}
	hData.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}

	go utils.RunPerfEndpoint(st.debugPort)

	goapp.Log.Info().Msg("starting handler")
	ctx, cancelFunc := context.WithCancel(ctx)
	doneCh, err := statusservice.StartStatusHandler(ctx, hData)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start status handler service")
	}

	goapp.Log.Info().Msg("starting web service")
	if err := statusservice.StartWebServer(data); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
	goapp.Log.Info().Msg("exit web service")
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
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
\__/_/   \__,_/_/ /_/____/\___/_/  /_/_.___/\____/  

         __        __            
   _____/ /_____ _/ /___  _______
  / ___/ __/ __ ` + "`" + `/ __/ / / / ___/
 (__  ) /_/ /_/ / /_/ /_/ (__  ) 
/____/\__/\__,_/\__/\__,_/____/   v: %s

%s
________________________________________________________                                                 

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/transcribo"))
}
