package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reports/internal/application/port"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._\-]`)

// LocalExportStorage implements port.ExportStorage for the local filesystem
type LocalExportStorage struct {
	baseDir string
	logger  *zap.Logger
}

var _ port.ExportStorage = (*LocalExportStorage)(nil)

// NewLocalExportStorage creates a new LocalExportStorage
func NewLocalExportStorage(baseDir string, logger *zap.Logger) *LocalExportStorage {
	return &LocalExportStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content to name, relative to the base directory, and
// returns the full path written
func (s *LocalExportStorage) Save(ctx context.Context, name string, content []byte) (string, error) {
	fullPath := s.GetFullPath(name)

	// Validate path security
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	// Create parent directories
	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", parentDir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	// Write file
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write file",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("File saved successfully",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return fullPath, nil
}

// Exists checks if a file exists at name
func (s *LocalExportStorage) Exists(ctx context.Context, name string) bool {
	_, err := os.Stat(s.GetFullPath(name))
	return err == nil
}

// GetFullPath joins the sanitized segments of name to the base directory
func (s *LocalExportStorage) GetFullPath(name string) string {
	segments := strings.FieldsFunc(filepath.ToSlash(name), func(r rune) bool { return r == '/' })
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, s.baseDir)
	for _, seg := range segments {
		if safe := SanitizeName(seg); safe != "" {
			parts = append(parts, safe)
		}
	}
	return filepath.Join(parts...)
}

// SanitizeName returns a filesystem-safe version of one path segment.
// Parent references and characters outside [a-zA-Z0-9._-] are dropped.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "\\", "")
	return unsafeChars.ReplaceAllString(name, "")
}

// validatePath checks that the path is safe and within baseDir
func (s *LocalExportStorage) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}
