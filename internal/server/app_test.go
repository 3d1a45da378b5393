package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pcbaerp/internal/config"
	"pcbaerp/internal/models"
	"pcbaerp/internal/server"
	"pcbaerp/internal/store/sqlite"
	"pcbaerp/internal/testutil"
	"pcbaerp/internal/websocket"
)

func newWorkOrder(t *testing.T, h http.Handler) models.WorkOrder {
	t.Helper()
	w := testutil.Do(h, "POST", "/api/v1/work-orders", map[string]any{
		"customer": "Acme Robotics", "part_number": "PCBA-B07", "quantity": 40,
	})
	testutil.AssertStatus(t, w, http.StatusCreated)
	var wo models.WorkOrder
	testutil.DecodeEnvelope(t, w, &wo)
	return wo
}

func TestHealth(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "GET", "/api/v1/health", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var h server.HealthStatus
	testutil.DecodeEnvelope(t, w, &h)
	assert.Equal(t, "ok", h.Status)
	assert.False(t, h.Persistent)
	assert.Equal(t, 9, h.Records[server.CollProductionLogs])
	assert.Equal(t, 3, h.Records[server.CollSystemLogs])
}

func TestHealth_DatabaseDown(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "erp.db"))
	require.NoError(t, err)
	data, err := server.OpenCollections(ctx, server.OpenOptions{DB: db, Seed: true})
	require.NoError(t, err)
	app := server.New(config.Default(), data, server.Options{Log: zaptest.NewLogger(t), DB: db})
	h := app.Router()

	w := testutil.Do(h, "GET", "/api/v1/health", nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	require.NoError(t, db.Close())
	w = testutil.Do(h, "GET", "/api/v1/health", nil)
	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
	assert.Equal(t, "SERVICE_UNAVAILABLE", testutil.DecodeError(t, w).Code)
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	app := testutil.NewApp(t)
	h := app.Router()

	w := testutil.Do(h, "GET", "/api/v1/invoices", nil)
	testutil.AssertStatus(t, w, http.StatusNotFound)
	assert.Equal(t, "NOT_FOUND", testutil.DecodeError(t, w).Code)

	w = testutil.Do(h, "PATCH", "/api/v1/health", nil)
	testutil.AssertStatus(t, w, http.StatusMethodNotAllowed)
}

func TestMutationsAreAuditedAndCounted(t *testing.T) {
	app := testutil.NewApp(t)
	h := app.Router()

	wo := newWorkOrder(t, h)

	assert.Equal(t, 1.0, promtest.ToFloat64(app.Metrics.Mutations.WithLabelValues(server.CollWorkOrders, "create")))
	assert.Equal(t, 3.0, promtest.ToFloat64(app.Metrics.Records.WithLabelValues(server.CollWorkOrders)))
	assert.Equal(t, 4.0, promtest.ToFloat64(app.Metrics.Records.WithLabelValues(server.CollSystemLogs)))

	logs, err := app.Data.SystemLogs.List(context.Background(), wo.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "CREATE "+wo.ID, logs[0].Action)
	assert.Equal(t, app.Planning.Module, logs[0].Module)
	assert.Equal(t, testutil.Operator, logs[0].User)

	w := testutil.Do(h, "GET", "/metrics", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), `pcba_mutations_total{action="create",collection="work_orders"} 1`)
}

func TestChangeFeed(t *testing.T) {
	app := testutil.NewApp(t)
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return app.Hub.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	wo := newWorkOrder(t, app.Router())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt websocket.Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, "work_orders_created", evt.Type)
	assert.Equal(t, wo.ID, evt.ID)
}

func TestGlobalSearch(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "GET", "/api/v1/search?q=WO-24001", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var hits map[string][]map[string]any
	testutil.DecodeEnvelope(t, w, &hits)
	assert.Len(t, hits["work-orders"], 1)
	assert.Len(t, hits["shipments"], 1)
	assert.Len(t, hits["production-logs"], 9)
	assert.Len(t, hits["transactions"], 1)
	assert.Empty(t, hits["employees"])
}

func TestReload(t *testing.T) {
	app := testutil.NewApp(t)
	h := app.Router()

	next := config.Default()
	next.CompanyName = "Hanoi Assembly"
	next.Server.RateLimit = 2
	app.Reload(next)

	assert.Equal(t, 2, app.Limiter.Limit())
	w := testutil.Do(h, "GET", "/api/v1/dashboard", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), "Hanoi Assembly")

	testutil.Do(h, "GET", "/api/v1/health", nil)
	w = testutil.Do(h, "GET", "/api/v1/health", nil)
	testutil.AssertStatus(t, w, http.StatusTooManyRequests)
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "erp.db")

	db, err := sqlite.Open(path)
	require.NoError(t, err)
	data, err := server.OpenCollections(ctx, server.OpenOptions{DB: db, Seed: true})
	require.NoError(t, err)
	app := server.New(config.Default(), data, server.Options{Log: zaptest.NewLogger(t), DB: db, Now: func() time.Time { return testutil.Now }})
	wo := newWorkOrder(t, app.Router())
	require.NoError(t, db.Close())

	db, err = sqlite.Open(path)
	require.NoError(t, err)
	defer db.Close()
	data, err = server.OpenCollections(ctx, server.OpenOptions{DB: db, Seed: true})
	require.NoError(t, err)
	assert.Equal(t, 3, data.WorkOrders.Len(ctx), "stored data is not reseeded")
	got, err := data.WorkOrders.Get(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Quantity)

	// The id sequence continues past what is stored.
	app = server.New(config.Default(), data, server.Options{Log: zaptest.NewLogger(t), DB: db, Now: func() time.Time { return testutil.Now }})
	next := newWorkOrder(t, app.Router())
	assert.Equal(t, "WO-2024-0002", next.ID)
}
