package clean

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Cleaner removes one job work dir
type Cleaner interface {
	Clean(ctx context.Context, ID string) error
}

// AllCleaner removes all job work dirs
type AllCleaner interface {
	CleanAll(ctx context.Context) (int, error)
}

// Data keeps data required for service work
type Data struct {
	Port       int
	Cleaner    Cleaner
	AllCleaner AllCleaner
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msgf("Starting HTTP clean service")
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 60 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Cleaner == nil {
		return errors.New("no cleaner")
	}
	if data.AllCleaner == nil {
		return errors.New("no all cleaner")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("transcribo_clean", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.DELETE("/delete/:id", delete(data.Cleaner))
	e.DELETE("/delete", deleteAll(data.AllCleaner))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func delete(cleaner Cleaner) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("delete method")()

		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		err := cleaner.Clean(c.Request().Context(), id)
		if err != nil {
			goapp.Log.Error().Err(err).Str("ID", goapp.Sanitize(id)).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't delete")
		}
		return c.String(http.StatusOK, "deleted")
	}
}

type deleteAllResult struct {
	Deleted int `json:"deleted"`
}

func deleteAll(cleaner AllCleaner) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("delete all method")()

		n, err := cleaner.CleanAll(c.Request().Context())
		if err != nil {
			goapp.Log.Error().Err(err).Int("deleted", n).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't delete")
		}
		goapp.Log.Info().Int("deleted", n).Msg("temp cleaned")
		return c.JSON(http.StatusOK, deleteAllResult{Deleted: n})
	}
}
