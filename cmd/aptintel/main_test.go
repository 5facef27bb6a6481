package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"aptintel/internal/aptcore"
	"aptintel/internal/config"
	"aptintel/internal/menu"
	"aptintel/internal/report"
)

const bundleTemplate = `{
  "type": "bundle",
  "id": "bundle--test",
  "objects": [
    {
      "type": "intrusion-set",
      "id": "intrusion-set--apt16",
      "name": "APT16",
      "aliases": ["APT16", "SVCMEDIA"],
      "description": "China-based group targeting Japanese and Taiwanese organizations.",
      "external_references": [
        {"source_name": "mitre-attack", "url": "%[1]s/groups/G0023", "external_id": "G0023"}
      ]
    },
    {
      "type": "intrusion-set",
      "id": "intrusion-set--fin7",
      "name": "FIN7",
      "aliases": ["FIN7", "Carbanak"],
      "description": "Financially motivated group targeting retail.",
      "external_references": [
        {"source_name": "mitre-attack", "url": "%[1]s/groups/G0046", "external_id": "G0046"}
      ]
    }
  ]
}`

// fixture serves both sources and group layers and counts requests.
type fixture struct {
	srv      *httptest.Server
	requests atomic.Int32
	dir      string
	cfgPath  string
}

func trackerBytes(t *testing.T) []byte {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Cover"))
	_, err := f.NewSheet("China")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("China", "A1", &[]string{"China groups"}))
	require.NoError(t, f.SetSheetRow("China", "A2", &[]string{
		aptcore.ColumnCommonName, aptcore.ColumnToolset, aptcore.ColumnTargets, aptcore.ColumnComment,
	}))
	require.NoError(t, f.SetSheetRow("China", "A3", &[]string{"APT16", "", "Japan, Taiwan", ""}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func newFixture(t *testing.T, mitrePath string) *fixture {
	for _, key := range []string{
		"APTINTEL_DATA_DIR", "APTINTEL_ARTIFACTS_DIR", "APTINTEL_REPORT_DIR",
		"APTINTEL_LOG_LEVEL", "APTINTEL_LISTEN_ADDR", "KAFKA_BROKER", "KAFKA_TOPIC",
	} {
		t.Setenv(key, "")
	}

	fx := &fixture{dir: t.TempDir()}
	tracker := trackerBytes(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/enterprise-attack.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, bundleTemplate, fx.srv.URL)
	})
	mux.HandleFunc("/tracker.xlsx", func(w http.ResponseWriter, r *http.Request) {
		w.Write(tracker)
	})
	mux.HandleFunc("/groups/G0023/G0023-enterprise-layer.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"APT16","domain":"enterprise-attack"}`))
	})
	fx.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fx.requests.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(fx.srv.Close)

	cfg := fmt.Sprintf(`data_dir: %s
artifacts_dir: %s
report_dir: %s
sources:
  mitre_url: %s%s
  tracker_url: %s/tracker.xlsx
http:
  timeout: 5s
log:
  level: error
`, fx.path("data"), fx.path("jsons"), fx.path("reports"), fx.srv.URL, mitrePath, fx.srv.URL)
	fx.cfgPath = fx.path("aptintel.yaml")
	require.NoError(t, os.WriteFile(fx.cfgPath, []byte(cfg), 0644))
	return fx
}

func (fx *fixture) path(parts ...string) string {
	return filepath.Join(append([]string{fx.dir}, parts...)...)
}

func (fx *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--config", fx.cfgPath))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConflictingSelectionsAbortBeforeIO(t *testing.T) {
	fx := newFixture(t, "/enterprise-attack.json")

	_, err := fx.run(t, "-g", "APT16", "-k", "taiwan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")

	assert.Zero(t, fx.requests.Load())
	assert.NoDirExists(t, fx.path("data"))
}

func TestActionRequired(t *testing.T) {
	fx := newFixture(t, "/enterprise-attack.json")

	_, err := fx.run(t, "--no-mitre")
	require.ErrorIs(t, err, errActionRequired)
	assert.Equal(t, "one of the arguments -g/--groups -k/--keywords -u/--update is required", err.Error())
	assert.Zero(t, fx.requests.Load())
}

func TestKeywordSearch(t *testing.T) {
	fx := newFixture(t, "/enterprise-attack.json")

	out, err := fx.run(t, "-k", "taiwan, japan", "--dedupe")
	require.NoError(t, err)
	assert.Contains(t, out, "[MITRE]: Found!")
	assert.Contains(t, out, "[APT Tracker]: Found!")
	assert.Contains(t, out, "Done!")

	assert.FileExists(t, fx.path("data", "enterprise-attack.json"))
	assert.FileExists(t, fx.path("data", "APT Groups and Operations.xlsx"))

	f, err := excelize.OpenFile(fx.path("reports", report.MitreFileName))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"name", "aliases", "description"}, rows[0])
	assert.Equal(t, "APT16", rows[1][0])
	assert.Equal(t, "APT16, SVCMEDIA", rows[1][1])

	assert.FileExists(t, fx.path("reports", report.TrackerFileName))
}

func TestKeywordSearchNoMatches(t *testing.T) {
	fx := newFixture(t, "/enterprise-attack.json")

	out, err := fx.run(t, "-k", "maritime", "--no-tracker")
	require.NoError(t, err)
	assert.Contains(t, out, "[MITRE]: APT Groups not found.")
	assert.NotContains(t, out, "[APT Tracker]: Searching")
	assert.NoFileExists(t, fx.path("reports", report.MitreFileName))
}

func TestGroupsDownload(t *testing.T) {
	fx := newFixture(t, "/enterprise-attack.json")

	out, err := fx.run(t, "-g", "UNKNOWNX, svcmedia")
	require.NoError(t, err)
	assert.Contains(t, out, "[MITRE]: Group 'UNKNOWNX' not found")
	assert.Contains(t, out, "[MITRE]: Searching APT group 'svcmedia'...\n[MITRE]: Found!")
	assert.Contains(t, out, "Done!")

	data, err := os.ReadFile(fx.path("jsons", "G0023-enterprise-layer.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"APT16","domain":"enterprise-attack"}`, string(data))
}

func TestUpdateReplacesSnapshots(t *testing.T) {
	fx := newFixture(t, "/enterprise-attack.json")
	require.NoError(t, os.MkdirAll(fx.path("data"), 0755))
	require.NoError(t, os.WriteFile(fx.path("data", "enterprise-attack.json"), []byte("stale"), 0644))
	require.NoError(t, os.WriteFile(fx.path("data", "APT Groups and Operations.xlsx"), []byte("stale"), 0644))

	out, err := fx.run(t, "-u")
	require.NoError(t, err)
	assert.Contains(t, out, "Done!")
	assert.Equal(t, int32(2), fx.requests.Load())

	groups, err := aptcore.LoadGroups(fx.path("data", "enterprise-attack.json"))
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestUnavailableSourceDoesNotAbort(t *testing.T) {
	fx := newFixture(t, "/missing.json")

	out, err := fx.run(t, "-k", "taiwan")
	require.NoError(t, err)
	assert.Contains(t, out, "[MITRE]: ")
	assert.Contains(t, out, "source unavailable")
	assert.Contains(t, out, "[APT Tracker]: Found!")
	assert.Contains(t, out, "Done!")
}

func TestQueryCommand(t *testing.T) {
	fx := newFixture(t, "/enterprise-attack.json")

	out, err := fx.run(t, "query", "carbanak")
	require.NoError(t, err)
	assert.Contains(t, out, "SCORE")
	assert.Contains(t, out, "FIN7")
	assert.NotContains(t, out, "APT16")
}

func TestRunChoice(t *testing.T) {
	fx := newFixture(t, "/enterprise-attack.json")
	cfg, err := config.Load(fx.cfgPath)
	require.NoError(t, err)

	var out bytes.Buffer
	a, err := newApp(cfg, zap.NewNop(), &out)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	assert.False(t, a.runChoice(ctx, menu.Choice{Option: menu.OptionExit}))

	assert.True(t, a.runChoice(ctx, menu.Choice{Option: menu.OptionUpdateMitre}))
	assert.Contains(t, out.String(), "[MITRE]: Updated.")

	assert.True(t, a.runChoice(ctx, menu.Choice{Option: menu.OptionMitreSearch, Input: []string{"retail"}}))
	assert.Contains(t, out.String(), "[MITRE]: Found!")
}
