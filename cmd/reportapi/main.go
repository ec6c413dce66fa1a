package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jose-valero/away-tracker-bot/internal/adapters/httpapi"
	"github.com/jose-valero/away-tracker-bot/internal/app/service"
	"github.com/jose-valero/away-tracker-bot/internal/infra/config"
	"github.com/jose-valero/away-tracker-bot/internal/infra/lock"
	"github.com/jose-valero/away-tracker-bot/internal/infra/logging"
	"github.com/jose-valero/away-tracker-bot/internal/infra/storage"
	"github.com/rs/zerolog/log"
)

// ReportSource es lo único que el handler necesita del servicio.
type ReportSource interface {
	Report(ctx context.Context, q service.ReportQuery) (service.Report, error)
}

var (
	initOnce sync.Once
	initErr  error
	reports  ReportSource
	secret   string
)

// setup abre la DB una sola vez por contenedor caliente.
func setup(ctx context.Context) error {
	initOnce.Do(func() {
		cfg, err := config.Load("")
		if err != nil {
			initErr = err
			return
		}
		log.Logger = logging.New(cfg.LogLevel, cfg.LogFormat)
		if initErr = cfg.Validate(false); initErr != nil {
			return
		}
		secret = cfg.ReportAPISecret

		db, err := storage.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			initErr = err
			return
		}
		settings, err := service.NewSettingsService(storage.NewSettingsRepo(db, cfg.Defaults), cfg.SettingsCacheSize, log.Logger)
		if err != nil {
			initErr = err
			return
		}
		reports = service.NewAwayService(settings, storage.NewSessionRepo(db), storage.NewLedgerRepo(db), lock.NewMemLocker(), log.Logger)
	})
	return initErr
}

// readSecret busca el header sin importar mayúsculas.
func readSecret(req events.APIGatewayV2HTTPRequest) string {
	want := strings.ToLower(httpapi.SecretHeader)
	for k, v := range req.Headers {
		if strings.ToLower(k) == want {
			return v
		}
	}
	return ""
}

func respond(status int, body any) events.APIGatewayV2HTTPResponse {
	b, _ := json.Marshal(body)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(b),
	}
}

func queryFor(req events.APIGatewayV2HTTPRequest) service.ReportQuery {
	q := service.ReportQuery{
		GuildID: req.PathParameters["guildID"],
		Date:    req.PathParameters["date"],
		UserID:  req.QueryStringParameters["user"],
		Admin:   true,
	}
	q.UserIDs = httpapi.SplitIDs(req.QueryStringParameters["users"])
	return q
}

func serve(ctx context.Context, src ReportSource, secret string, req events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	got := readSecret(req)
	if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
		log.Warn().Str("ip", req.RequestContext.HTTP.SourceIP).Msg("report api: unauthorized")
		return respond(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	q := queryFor(req)
	if q.GuildID == "" {
		return respond(http.StatusBadRequest, map[string]string{"error": "guild required"})
	}
	rep, err := src.Report(ctx, q)
	if err != nil {
		status, msg := httpapi.StatusFor(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Str("guild", q.GuildID).Str("date", q.Date).Msg("report api")
		}
		return respond(status, map[string]string{"error": msg})
	}
	return respond(http.StatusOK, rep)
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if err := setup(ctx); err != nil {
		log.Error().Err(err).Msg("report api setup")
		return respond(http.StatusServiceUnavailable, map[string]string{"error": "unavailable"}), nil
	}
	if req.RequestContext.HTTP.Method != "" && req.RequestContext.HTTP.Method != http.MethodGet {
		return respond(http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"}), nil
	}
	return serve(ctx, reports, secret, req), nil
}

func main() { lambda.Start(handler) }
