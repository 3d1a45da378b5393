package settings_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcbaerp/internal/config"
	"pcbaerp/internal/handlers/settings"
	"pcbaerp/internal/models"
	"pcbaerp/internal/testutil"
)

func TestGetSettings_HidesSecrets(t *testing.T) {
	app := testutil.NewApp(t, testutil.WithConfig(func(c *config.Config) {
		c.CompanyName = "Saigon EMS"
		c.Insight.APIKey = "secret-key"
	}))

	w := testutil.Do(app.Router(), "GET", "/api/v1/settings", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	assert.NotContains(t, w.Body.String(), "secret-key")

	var v settings.View
	testutil.DecodeEnvelope(t, w, &v)
	require.NotNil(t, v.Config)
	assert.Equal(t, "Saigon EMS", v.Config.CompanyName)
	assert.False(t, v.Integration.Persistent)
	assert.Equal(t, 2, v.Integration.Records["work_orders"])
	assert.Equal(t, 0, v.Integration.WebsocketClients)
}

func TestListSystemLogs(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "GET", "/api/v1/system-logs?search=drop", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var logs []models.SystemLog
	testutil.DecodeEnvelope(t, w, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, "warning", logs[0].Severity)
}

func TestClearLogs(t *testing.T) {
	app := testutil.NewApp(t)
	h := app.Router()

	w := testutil.Do(h, "DELETE", "/api/v1/system-logs", nil)
	testutil.AssertStatus(t, w, http.StatusPreconditionRequired)
	assert.Equal(t, "CONFIRMATION_REQUIRED", testutil.DecodeError(t, w).Code)

	w = testutil.Do(h, "DELETE", "/api/v1/system-logs?confirm=true", nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	logs, err := app.Data.SystemLogs.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, logs, 1, "only the record of the wipe remains")
	assert.True(t, strings.HasPrefix(logs[0].Action, "CLEAR"))
	assert.Equal(t, testutil.Operator, logs[0].User)
	assert.Equal(t, "warning", logs[0].Severity)
}

func TestExportSystemLogs(t *testing.T) {
	app := testutil.NewApp(t)

	w := testutil.Do(app.Router(), "GET", "/api/v1/system-logs/export?format=csv", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), "Table Drop Attempt")
}
