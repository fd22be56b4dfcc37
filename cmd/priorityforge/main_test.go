package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/api"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/config"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/logger"
)

const rankFixture = `tasks:
  - id: docs
    title: Write docs
    priority: P2
    project: web
  - id: outage
    title: Fix outage
    priority: P0
    project: api
  - id: schema
    title: Design schema
    priority: P1
    project: api
  - id: shipped
    title: Old release
    priority: P0
    status: complete
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// writeConfig writes a sqlite config file and returns its path.
func writeConfig(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "forge.db")
	return writeFile(t, "config.yaml", fmt.Sprintf(`server:
  log_level: error
  shutdown_timeout_seconds: 5
database:
  driver: sqlite
  url: %s
ranking:
  refresh_interval_seconds: 0
`, dbPath))
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRankCommand(t *testing.T) {
	path := writeFile(t, "tasks.yaml", rankFixture)

	out, err := runCmd(t, "rank", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4, "header plus three open tasks")
	assert.True(t, strings.HasPrefix(lines[0], "RANK"))
	assert.Contains(t, lines[1], "outage")
	assert.Contains(t, lines[2], "schema")
	assert.Contains(t, lines[3], "docs")
	assert.NotContains(t, out, "shipped")
}

func TestRankCommandTop(t *testing.T) {
	path := writeFile(t, "tasks.yaml", rankFixture)

	out, err := runCmd(t, "rank", path, "--top", "1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "outage")
}

func TestRankCommandEmpty(t *testing.T) {
	path := writeFile(t, "tasks.yaml", "tasks: []\n")

	out, err := runCmd(t, "rank", path)
	require.NoError(t, err)
	assert.Equal(t, "No open tasks.\n", out)
}

func TestRankCommandErrors(t *testing.T) {
	valid := writeFile(t, "tasks.yaml", rankFixture)
	invalid := writeFile(t, "bad.yaml", "tasks:\n  - title: missing priority\n")

	tests := []struct {
		name string
		args []string
	}{
		{"no file argument", []string{"rank"}},
		{"missing file", []string{"rank", filepath.Join(t.TempDir(), "nope.yaml")}},
		{"invalid task", []string{"rank", invalid}},
		{"negative top", []string{"rank", valid, "--top", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestMigrateCommand(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := runCmd(t, "--config", cfgPath, "migrate", "version")
	require.NoError(t, err)
	assert.Equal(t, "0", strings.TrimSpace(out))

	_, err = runCmd(t, "--config", cfgPath, "migrate", "up")
	require.NoError(t, err)

	out, err = runCmd(t, "--config", cfgPath, "migrate", "version")
	require.NoError(t, err)
	v, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	require.NoError(t, err)
	assert.Positive(t, v)
}

func TestMigrateCommandRejectsUnknownCommand(t *testing.T) {
	_, err := runCmd(t, "--config", writeConfig(t), "migrate", "sideways")
	assert.Error(t, err)

	_, err = runCmd(t, "--config", writeConfig(t), "migrate")
	assert.Error(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := runCmd(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func newTestApplication(t *testing.T) *application {
	t.Helper()
	cfg, err := config.LoadFile(writeConfig(t))
	require.NoError(t, err)

	log, _ := logger.NewBufferLogger()
	app, err := newApplication(context.Background(), cfg, log)
	require.NoError(t, err)
	return app
}

func TestApplicationSeedIsIdempotent(t *testing.T) {
	app := newTestApplication(t)
	defer app.cleanup()

	path := writeFile(t, "tasks.yaml", rankFixture)
	ctx := context.Background()

	require.NoError(t, app.seed(ctx, path))
	require.NoError(t, app.seed(ctx, path))

	tasks, err := app.taskService.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 4)

	next, ok := app.taskService.NextTask(ctx)
	require.True(t, ok)
	assert.Equal(t, "outage", next.Task.ID)
}

func TestServeHTTPShutsDownOnCancel(t *testing.T) {
	app := newTestApplication(t)
	defer app.cleanup()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.serveHTTP(ctx, ln, api.NewRouter(app.taskService, app.logger))
	}()

	url := "http://" + ln.Addr().String() + "/api/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRefresherDisabledReturnsImmediately(t *testing.T) {
	app := newTestApplication(t)
	defer app.cleanup()

	done := make(chan struct{})
	go func() {
		app.runRefresher(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher should not run with a zero interval")
	}
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "mcp", "migrate", "rank"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("seed"))
}
