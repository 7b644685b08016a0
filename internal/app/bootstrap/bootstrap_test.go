package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohanimedicare/medicare-platform/internal/appointments"
	appconfig "github.com/dohanimedicare/medicare-platform/internal/config"
	"github.com/dohanimedicare/medicare-platform/internal/events"
	httpmiddleware "github.com/dohanimedicare/medicare-platform/internal/http/middleware"
	"github.com/dohanimedicare/medicare-platform/internal/messages"
	"github.com/dohanimedicare/medicare-platform/internal/notify"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

var testAWS = aws.Config{Region: "us-east-1"}

func TestBuildStoresRequiresConfig(t *testing.T) {
	_, err := BuildStores(context.Background(), nil, logging.New("error"))
	require.Error(t, err)
}

func TestBuildStoresMemory(t *testing.T) {
	stores, err := BuildStores(context.Background(), &appconfig.Config{StoreBackend: appconfig.StoreMemory}, logging.New("error"))
	require.NoError(t, err)
	defer stores.Close()

	assert.IsType(t, &appointments.MemoryStore{}, stores.Appointments)
	assert.IsType(t, &messages.MemoryStore{}, stores.Messages)
}

func TestBuildStoresCMS(t *testing.T) {
	stores, err := BuildStores(context.Background(), &appconfig.Config{
		StoreBackend: appconfig.StoreCMS,
		CMSEndpoint:  "https://cms.example.test/graphql",
	}, logging.New("error"))
	require.NoError(t, err)

	assert.IsType(t, &appointments.CMSStore{}, stores.Appointments)
	assert.IsType(t, &messages.CMSStore{}, stores.Messages)
}

func TestBuildStoresRejectsMisconfiguration(t *testing.T) {
	cases := []*appconfig.Config{
		{StoreBackend: appconfig.StorePostgres},
		{StoreBackend: appconfig.StoreCMS},
		{StoreBackend: "dynamo"},
	}
	for _, cfg := range cases {
		_, err := BuildStores(context.Background(), cfg, logging.New("error"))
		assert.Error(t, err, cfg.StoreBackend)
	}
}

func TestBuildEmailSenderSelection(t *testing.T) {
	logger := logging.New("error")

	assert.IsType(t, &notify.StubEmailSender{}, BuildEmailSender(nil, testAWS, logger))
	assert.IsType(t, &notify.StubEmailSender{}, BuildEmailSender(&appconfig.Config{EmailProvider: appconfig.EmailStub}, testAWS, logger))
	assert.IsType(t, &notify.StubEmailSender{}, BuildEmailSender(&appconfig.Config{EmailProvider: appconfig.EmailSendGrid}, testAWS, logger))
	assert.IsType(t, &notify.SendGridSender{}, BuildEmailSender(&appconfig.Config{
		EmailProvider:  appconfig.EmailSendGrid,
		SendGridAPIKey: "SG.test",
		SenderEmail:    "noreply@dohani.test",
	}, testAWS, logger))
	assert.IsType(t, &notify.SESSender{}, BuildEmailSender(&appconfig.Config{
		EmailProvider: appconfig.EmailSES,
		SenderEmail:   "noreply@dohani.test",
	}, testAWS, logger))
	assert.IsType(t, &notify.StubEmailSender{}, BuildEmailSender(&appconfig.Config{EmailProvider: "pigeon"}, testAWS, logger))
}

func TestBuildPublisherSelection(t *testing.T) {
	logger := logging.New("error")

	assert.IsType(t, &events.LogPublisher{}, BuildPublisher(&appconfig.Config{}, testAWS, logger))
	assert.IsType(t, &events.SQSPublisher{}, BuildPublisher(&appconfig.Config{
		EventsQueueURL: "https://sqs.us-east-1.amazonaws.com/123456789012/dohani-events",
	}, testAWS, logger))
}

func TestBuildArchive(t *testing.T) {
	assert.Nil(t, BuildArchive(&appconfig.Config{}, testAWS, nil))

	store := BuildArchive(&appconfig.Config{ExportBucket: "dohani-exports"}, testAWS, nil)
	require.NotNil(t, store)
	assert.True(t, store.Enabled())
}

func TestBuildRedisClient(t *testing.T) {
	logger := logging.New("error")
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, logger, true))

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true)
	require.NotNil(t, client)
	defer client.Close()

	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true))
}

func TestBuildRateLimiterSelection(t *testing.T) {
	logger := logging.New("error")

	limiter, loop := BuildRateLimiter(&appconfig.Config{RateLimitRPS: 1, RateLimitBurst: 2}, nil, logger)
	assert.IsType(t, &httpmiddleware.IPRateLimiter{}, limiter)
	require.NotNil(t, loop)

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, false)
	defer client.Close()
	limiter, loop = BuildRateLimiter(&appconfig.Config{}, client, logger)
	assert.IsType(t, &httpmiddleware.RedisRateLimiter{}, limiter)
	loop(context.Background())
}

func TestBuildAppServesHealthAndMetrics(t *testing.T) {
	cfg := &appconfig.Config{
		StoreBackend:  appconfig.StoreMemory,
		EmailProvider: appconfig.EmailStub,
		SenderName:    "Dohani Medicare",
		StaffEmail:    "staff@dohani.test",
	}
	app, err := BuildApp(context.Background(), cfg, testAWS, logging.New("error"))
	require.NoError(t, err)
	defer app.Close()

	rr := httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")

	// admin routes are not mounted without a secret
	rr = httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// memory backend has no outbox to flush
	assert.Equal(t, 0, app.FlushEvents(context.Background()))
}

func TestAppRunStopsWithContext(t *testing.T) {
	app, err := BuildApp(context.Background(), &appconfig.Config{StoreBackend: appconfig.StoreMemory}, testAWS, logging.New("error"))
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	app.Run(ctx)
}
