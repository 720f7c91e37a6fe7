// Package modelstore persists trained speed models and their scalers as co-versioned files.
package modelstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartcity/traffic/internal/domain"
	"github.com/smartcity/traffic/internal/features"
	"github.com/smartcity/traffic/internal/forest"
)

// Artifact is a model and the scaler fit in the same training run
type Artifact struct {
	Version      string
	Forest       *forest.Forest
	Scaler       *forest.StandardScaler
	Schema       features.Schema
	TrainedAt    time.Time
	ValidationR2 float64
}

type modelFile struct {
	Version   string         `json:"version"`
	TrainedAt time.Time      `json:"trained_at"`
	Forest    *forest.Forest `json:"forest"`
}

type scalerFile struct {
	Version      string                 `json:"version"`
	Schema       features.Schema        `json:"schema"`
	ValidationR2 float64                `json:"validation_r2"`
	Scaler       *forest.StandardScaler `json:"scaler"`
}

// FileStore keeps artifacts under a directory
type FileStore struct {
	dir    string
	logger *zap.SugaredLogger
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string, logger *zap.SugaredLogger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("modelstore: failed to create %s: %w", dir, err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir returns the storage directory
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) modelPath(id string) string {
	return filepath.Join(s.dir, id+".model.json")
}

func (s *FileStore) scalerPath(id string) string {
	return filepath.Join(s.dir, id+".scaler.json")
}

// Save writes the model and scaler for id. Both files share a fresh version
// token; Load ignores a pair whose tokens differ.
func (s *FileStore) Save(id string, a Artifact) error {
	if a.Forest == nil || a.Scaler == nil {
		return fmt.Errorf("modelstore: %w: model and scaler must be saved together", domain.ErrPersistence)
	}
	version := uuid.NewString()

	modelTmp, err := s.writeTemp(id+".model", modelFile{
		Version:   version,
		TrainedAt: a.TrainedAt,
		Forest:    a.Forest,
	})
	if err != nil {
		return err
	}
	scalerTmp, err := s.writeTemp(id+".scaler", scalerFile{
		Version:      version,
		Schema:       a.Schema,
		ValidationR2: a.ValidationR2,
		Scaler:       a.Scaler,
	})
	if err != nil {
		os.Remove(modelTmp)
		return err
	}

	if err := os.Rename(modelTmp, s.modelPath(id)); err != nil {
		os.Remove(modelTmp)
		os.Remove(scalerTmp)
		return fmt.Errorf("modelstore: %w: failed to install model file: %v", domain.ErrPersistence, err)
	}
	if err := os.Rename(scalerTmp, s.scalerPath(id)); err != nil {
		os.Remove(scalerTmp)
		return fmt.Errorf("modelstore: %w: failed to install scaler file: %v", domain.ErrPersistence, err)
	}

	s.logger.Infow("model saved", "model_id", id, "version", version, "dir", s.dir)
	return nil
}

func (s *FileStore) writeTemp(prefix string, v any) (string, error) {
	f, err := os.CreateTemp(s.dir, prefix+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("modelstore: %w: failed to create temp file: %v", domain.ErrPersistence, err)
	}
	if err := json.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("modelstore: %w: failed to encode %s: %v", domain.ErrPersistence, prefix, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("modelstore: %w: failed to flush %s: %v", domain.ErrPersistence, prefix, err)
	}
	return f.Name(), nil
}

// Load returns the artifact for id. Missing, unreadable, mismatched or
// schema-incompatible pairs are reported as absent.
func (s *FileStore) Load(id string) (Artifact, bool) {
	var m modelFile
	if ok := s.read(s.modelPath(id), &m); !ok {
		return Artifact{}, false
	}
	var sc scalerFile
	if ok := s.read(s.scalerPath(id), &sc); !ok {
		return Artifact{}, false
	}

	switch {
	case m.Version != sc.Version:
		s.logger.Warnw("model and scaler versions differ, ignoring artifacts",
			"model_id", id, "model_version", m.Version, "scaler_version", sc.Version)
		return Artifact{}, false
	case !features.CurrentSchema.Compatible(sc.Schema):
		s.logger.Warnw("stored feature schema is incompatible, ignoring artifacts",
			"model_id", id, "stored_version", sc.Schema.Version, "current_version", features.CurrentSchema.Version)
		return Artifact{}, false
	case m.Forest == nil || sc.Scaler == nil || m.Forest.NumFeatures != features.CurrentSchema.Len():
		s.logger.Warnw("stored artifacts are incomplete", "model_id", id)
		return Artifact{}, false
	}

	s.logger.Infow("model loaded", "model_id", id, "version", m.Version)
	return Artifact{
		Version:      m.Version,
		Forest:       m.Forest,
		Scaler:       sc.Scaler,
		Schema:       sc.Schema,
		TrainedAt:    m.TrainedAt,
		ValidationR2: sc.ValidationR2,
	}, true
}

func (s *FileStore) read(path string, v any) bool {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	if err != nil {
		s.logger.Errorw("failed to read model artifact", "path", path, "error", err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Errorw("failed to decode model artifact", "path", path, "error", err)
		return false
	}
	return true
}
