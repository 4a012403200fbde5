package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/stanza/internal/config"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := config.Defaults()
	require.NoError(t, cfg.Validate())

	rc, err := cfg.RouteConfig()
	require.NoError(t, err)
	assert.Equal(t, route.DefaultConfig(), rc)

	strategy, err := cfg.Strategy()
	require.NoError(t, err)
	assert.Equal(t, registry.StrategyStrict, strategy)

	threshold, err := cfg.SeverityThreshold()
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityMajor, threshold)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stanza.yaml", `
matching:
  delimiter: tab-or-space
  escape_constants: false
  strategy: lazy
validation:
  strict_scenario: true
  severity_threshold: critical
runner:
  workers: 8
  stop_on_failure: true
  lock: nightly
  lock_ttl: 2m
store:
  driver: redis
  redis:
    addr: redis:6379
    db: 2
    ttl: 24h
tools:
  - name: greet
    command: echo
    args: [hello]
routes:
  - routes.yaml
variables:
  host: example.org
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	rc, err := cfg.RouteConfig()
	require.NoError(t, err)
	assert.Equal(t, route.Config{Delimiter: route.DelimiterTabOrSpace, EscapeConstants: false}, rc)

	strategy, _ := cfg.Strategy()
	assert.Equal(t, registry.StrategyLazy, strategy)
	threshold, _ := cfg.SeverityThreshold()
	assert.Equal(t, domain.SeverityCritical, threshold)

	assert.True(t, cfg.Validation.StrictScenario)
	assert.Equal(t, 8, cfg.Runner.Workers)
	assert.True(t, cfg.Runner.StopOnFailure)
	assert.Equal(t, "nightly", cfg.Runner.Lock)
	assert.Equal(t, 2*time.Minute, cfg.Runner.LockTTL)
	assert.Equal(t, config.DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "stanza:", cfg.Store.Redis.Prefix)
	assert.Equal(t, 24*time.Hour, cfg.Store.Redis.TTL)
	require.Len(t, cfg.Tools, 1)
	assert.Equal(t, []string{"hello"}, cfg.Tools[0].Args)
	assert.Equal(t, "example.org", cfg.Variables["host"])
	assert.Equal(t, filepath.Join(dir, "routes.yaml"), cfg.Resolve("routes.yaml"))
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stanza.yaml", `
matching:
  delimiter: comma
  strategy: fuzzy
validation:
  severity_threshold: huge
store:
  driver: etcd
tools:
  - name: a
`)

	_, err := config.Load(path)
	require.Error(t, err)
	for _, msg := range []string{"comma", "fuzzy", "huge", "etcd", `tool "a"`} {
		assert.Contains(t, err.Error(), msg)
	}

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_FileDriver(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stanza.yaml", `
store:
  driver: file
  path: out/runs
runner:
  lock: nightly
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DriverFile, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(dir, "out/runs"), cfg.Resolve(cfg.Store.Path))
	assert.Equal(t, "nightly", cfg.Runner.Lock)
	assert.Equal(t, 10*time.Minute, cfg.Runner.LockTTL)
}

func TestLoadDeclarations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "routes.yaml", `
routes:
  - group: web
    tokens: ["Open", "[url]"]
    action: print
    description: Opens a page
  - tokens: Say [message]{0}
    action: print
    deprecated: true
  - tokens: ["Fetch", "[url]"]
    action: run
    args:
      tool: curl
      args: ${url}
`)
	cfg := config.Defaults()
	cfg.Dir = dir
	cfg.Routes = []string{"routes.yaml"}

	decls, err := cfg.LoadDeclarations()
	require.NoError(t, err)
	require.Len(t, decls, 3)

	assert.Equal(t, "web", decls[0].Group)
	assert.Equal(t, []string{"Open", "[url]"}, decls[0].Tokens)
	assert.Equal(t, "Opens a page", decls[0].Description)
	assert.Equal(t, []string{"Say", "[message]{0}"}, decls[1].Tokens)
	assert.True(t, decls[1].Deprecated)
	assert.Equal(t, map[string]any{"tool": "curl", "args": "${url}"}, decls[2].Args)
}

func TestReadDeclarations_Errors(t *testing.T) {
	dir := t.TempDir()

	path := writeFile(t, dir, "unknown.yaml", "routes:\n  - tokens: [A]\n    action: print\n    colour: red\n")
	_, err := config.ReadDeclarations(path)
	assert.ErrorContains(t, err, "colour")

	path = writeFile(t, dir, "noaction.yaml", "routes:\n  - tokens: [A]\n")
	_, err = config.ReadDeclarations(path)
	assert.ErrorContains(t, err, "missing action")
}
