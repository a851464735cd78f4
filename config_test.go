package flowtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
)

func TestLoadConfig_File(t *testing.T) {
	cfg, err := LoadConfig("testdata/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "testdata", cfg.ResourceRoot)
	assert.Equal(t, "de", cfg.Locale)
	assert.Equal(t, LogConfig{Level: "debug", Encoding: "json"}, cfg.Log)
	assert.Equal(t, "flowtest_test", cfg.Metrics.Namespace)
	assert.Equal(t, BackendMemory, cfg.Snapshots.Backend)
	assert.Equal(t, "flow_snapshots", cfg.Snapshots.Table, "defaults fill unset keys")
	assert.Equal(t, "flowtest:", cfg.Snapshots.Prefix)

	tag, err := cfg.LocaleTag()
	require.NoError(t, err)
	assert.Equal(t, language.German, tag)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultResourceRoot, cfg.ResourceRoot)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Encoding)
	assert.Equal(t, BackendNone, cfg.Snapshots.Backend)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("FLOWTEST_LOG_LEVEL", "warn")
	t.Setenv("FLOWTEST_SNAPSHOTS_BACKEND", "sqlite")

	cfg, err := LoadConfig("testdata/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, BackendSQLite, cfg.Snapshots.Backend)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestConfig_NewLogger(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "warn", Encoding: "json"}}
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	cfg.Log.Level = "loud"
	_, err = cfg.NewLogger()
	assert.Error(t, err)
}

func TestConfig_NewDocumentConfiguration(t *testing.T) {
	cfg := &Config{ResourceRoot: "testdata/simpleFlows"}
	tester, err := NewMockFlowTester(NewFlowBuilder(cfg.NewDocumentConfiguration("standaloneFlow.xml")).WithLogger(nopLogger()),
		WithLogger(nopLogger()))
	require.NoError(t, err)
	require.NoError(t, tester.StartFlow(nil))

	state, err := tester.CurrentStateID()
	require.NoError(t, err)
	assert.Equal(t, "start", state)

	cfg = &Config{ResourceRoot: "testdata", BasePath: "simpleFlows"}
	r, err := cfg.NewDocumentConfiguration("simpleFlows/standaloneFlow.xml").Resource()
	require.NoError(t, err)
	assert.Equal(t, "standaloneFlow", r.ID)
}
