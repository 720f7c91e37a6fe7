package modelstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartcity/traffic/internal/features"
	"github.com/smartcity/traffic/internal/forest"
)

func testArtifact() Artifact {
	width := features.CurrentSchema.Len()
	scaler := &forest.StandardScaler{Mean: make([]float64, width), Scale: make([]float64, width)}
	for i := range scaler.Scale {
		scaler.Scale[i] = 1
	}
	return Artifact{
		Forest: &forest.Forest{
			Trees:       []*forest.Tree{{Nodes: []forest.Node{{Feature: -1, Value: 42}}}},
			NumFeatures: width,
		},
		Scaler:       scaler,
		Schema:       features.CurrentSchema,
		TrainedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		ValidationR2: 0.73,
	}
}

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "models"), zap.NewNop().Sugar())
	require.NoError(t, err)
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save("speed_model", testArtifact()))

	got, ok := s.Load("speed_model")
	require.True(t, ok)
	assert.NotEmpty(t, got.Version)
	assert.Equal(t, 0.73, got.ValidationR2)
	assert.True(t, got.TrainedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))

	p, err := got.Forest.Predict(make([]float64, features.CurrentSchema.Len()))
	require.NoError(t, err)
	assert.Equal(t, 42.0, p)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files must not be left behind")
}

func TestLoad_Missing(t *testing.T) {
	s := newStore(t)
	_, ok := s.Load("speed_model")
	assert.False(t, ok)
}

func TestLoad_MissingScaler(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save("speed_model", testArtifact()))
	require.NoError(t, os.Remove(s.scalerPath("speed_model")))

	_, ok := s.Load("speed_model")
	assert.False(t, ok)
}

func TestLoad_CorruptFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save("speed_model", testArtifact()))
	require.NoError(t, os.WriteFile(s.modelPath("speed_model"), []byte("{not json"), 0o644))

	_, ok := s.Load("speed_model")
	assert.False(t, ok)
}

func TestLoad_VersionMismatch(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save("speed_model", testArtifact()))
	stale, err := os.ReadFile(s.modelPath("speed_model"))
	require.NoError(t, err)

	require.NoError(t, s.Save("speed_model", testArtifact()))
	require.NoError(t, os.WriteFile(s.modelPath("speed_model"), stale, 0o644))

	_, ok := s.Load("speed_model")
	assert.False(t, ok)
}

func TestLoad_IncompatibleSchema(t *testing.T) {
	s := newStore(t)
	a := testArtifact()
	a.Schema = features.Schema{Version: 99, Names: []string{"hour"}}
	require.NoError(t, s.Save("speed_model", a))

	_, ok := s.Load("speed_model")
	assert.False(t, ok)
}

func TestSave_RequiresPair(t *testing.T) {
	s := newStore(t)
	a := testArtifact()
	a.Scaler = nil
	assert.Error(t, s.Save("speed_model", a))

	_, ok := s.Load("speed_model")
	assert.False(t, ok)
}
