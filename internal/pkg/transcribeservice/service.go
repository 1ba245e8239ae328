package transcribeservice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	perrors "github.com/pkg/errors"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/transcribo/internal/pkg/api"
	"github.com/airenas/transcribo/internal/pkg/messages"
	"github.com/airenas/transcribo/internal/pkg/persistence"
	"github.com/airenas/transcribo/internal/pkg/pipeline"
	"github.com/airenas/transcribo/internal/pkg/status"
	"github.com/airenas/transcribo/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Runner runs one transcription job
type Runner interface {
	Run(ctx context.Context, req *pipeline.Request) (string, error)
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB saves status records
type DB interface {
	SaveStatus(ctx context.Context, item *persistence.Status) error
}

// Data keeps data required for service work
type Data struct {
	Port       int
	Runner     Runner
	DB         DB
	MsgSender  MsgSender
	Reporter   status.Reporter
	JobTimeout time.Duration
}

const maxIDLen = 100

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP transcribe service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = data.JobTimeout + time.Minute

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Runner == nil {
		return perrors.New("no runner")
	}
	if data.DB == nil {
		return perrors.New("no DB")
	}
	if data.MsgSender == nil {
		return perrors.New("no msg sender")
	}
	if data.Reporter == nil {
		return perrors.New("no reporter")
	}
	if data.JobTimeout <= 0 {
		return perrors.Errorf("wrong job timeout %v", data.JobTimeout)
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("transcribo_api", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/transcribe", transcribe(data))
	e.POST("/queue", queue(data))
	e.PUT("/manual/:id", manual(data))
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

func transcribe(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("transcribe method")()
		req, err := takeRequest(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.TranscribeResponse{Message: err.Error()})
		}
		// the job outlives a disconnected client, it is bounded by the pipeline timeout
		ctx := context.WithoutCancel(c.Request().Context())
		if err := savePending(ctx, data.DB, req); err != nil {
			goapp.Log.Error().Err(err).Str("ID", req.DocumentID).Send()
			return c.JSON(http.StatusInternalServerError, api.TranscribeResponse{Message: "can't save status"})
		}
		res, err := data.Runner.Run(ctx, &pipeline.Request{DocumentID: req.DocumentID, SourceURL: req.AudioURL,
			ForceChunked: req.ForceChunked, Language: req.Language})
		if err != nil {
			if errors.Is(err, pipeline.ErrWrongRequest) {
				return c.JSON(http.StatusBadRequest, api.TranscribeResponse{Message: err.Error()})
			}
			goapp.Log.Warn().Err(err).Str("ID", req.DocumentID).Msg("transcription failed")
			return c.JSON(http.StatusInternalServerError, api.TranscribeResponse{Message: pipeline.FailureMessage})
		}
		return c.JSON(http.StatusOK, api.TranscribeResponse{Success: true, Transcription: res})
	}
}

func queue(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("queue method")()
		ctx := c.Request().Context()
		req, err := takeRequest(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if err := savePending(ctx, data.DB, req); err != nil {
			goapp.Log.Error().Err(err).Str("ID", req.DocumentID).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		err = data.MsgSender.SendMessage(ctx, &messages.DocMessage{QueueMessage: amessages.QueueMessage{ID: req.DocumentID},
			SourceURL: req.AudioURL, ForceChunked: req.ForceChunked, Language: req.Language}, messages.Transcribe)
		if err != nil {
			goapp.Log.Error().Err(err).Str("ID", req.DocumentID).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, api.QueueResponse{ID: req.DocumentID})
	}
}

func manual(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("manual method")()
		id := c.Param("id")
		if err := validateID(id); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		var input api.ManualRequest
		if err := c.Bind(&input); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusBadRequest, "can't decode request")
		}
		if strings.TrimSpace(input.Transcript) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no transcript")
		}
		if err := data.Reporter.Report(c.Request().Context(), id, status.Manual, input.Transcript, 100); err != nil {
			goapp.Log.Error().Err(err).Str("ID", id).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, api.QueueResponse{ID: id})
	}
}

func takeRequest(c echo.Context) (*api.TranscribeRequest, error) {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ctype, echo.MIMEApplicationJSON) {
		return nil, perrors.Errorf("wrong content type, expected '%s'", echo.MIMEApplicationJSON)
	}
	var res api.TranscribeRequest
	if err := c.Bind(&res); err != nil {
		goapp.Log.Error().Err(err).Send()
		return nil, perrors.New("can't decode request")
	}
	if err := validateRequest(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

func validateRequest(req *api.TranscribeRequest) error {
	if err := validateID(req.DocumentID); err != nil {
		return err
	}
	if req.AudioURL == "" {
		return perrors.New("no audioUrl")
	}
	u, err := url.Parse(req.AudioURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return perrors.Errorf("wrong audioUrl '%s'", goapp.Sanitize(req.AudioURL))
	}
	return nil
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return perrors.New("no documentId")
	}
	if len(id) > maxIDLen {
		return perrors.Errorf("documentId too long, max %d", maxIDLen)
	}
	return nil
}

func savePending(ctx context.Context, db DB, req *api.TranscribeRequest) error {
	now := time.Now()
	err := db.SaveStatus(ctx, &persistence.Status{ID: req.DocumentID, SourceURL: utils.ToSQLStr(req.AudioURL),
		Status: status.Pending.String(), Content: "Waiting for transcription", Created: now, Updated: now})
	if err != nil {
		return fmt.Errorf("can't save pending status: %w", err)
	}
	return nil
}
