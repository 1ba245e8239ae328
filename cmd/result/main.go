package main

import (
	"context"

	"github.com/airenas/async-api/pkg/miniofs"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcribo/internal/pkg/postgres"
	"github.com/airenas/transcribo/internal/pkg/result"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &result.Data{}
	data.Port = cfg.GetInt("port")
	var err error

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.DB = db

	bucket := cfg.GetString("filer.bucket")
	if bucket == "" {
		bucket = "transcripts"
	}
	data.Reader, err = miniofs.NewFiler(ctx, miniofs.Options{Bucket: bucket,
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key"),
		Secure: cfg.GetBool("filer.https")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init file reader")
	}

	err = result.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
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

                          ____
   ________  _______  __/ / /_
  / ___/ _ \/ ___/ / / / / __/
 / /  /  __(__  ) /_/ / / /_  
/_/   \___/____/\__,_/_/\__/   v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/transcribo"))
}
