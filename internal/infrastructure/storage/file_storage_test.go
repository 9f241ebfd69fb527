package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalExportStorage_Save(t *testing.T) {
	tempDir := t.TempDir()
	logger, _ := zap.NewDevelopment()
	fs := NewLocalExportStorage(tempDir, logger)
	ctx := context.Background()

	t.Run("saves file successfully", func(t *testing.T) {
		path, err := fs.Save(ctx, "abc123/rapport_rules.csv", []byte("a,b\n"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tempDir, "abc123", "rapport_rules.csv"), path)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("a,b\n"), content)
		assert.True(t, fs.Exists(ctx, "abc123/rapport_rules.csv"))
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		_, err := fs.Save(ctx, "overwrite.txt", []byte("original"))
		require.NoError(t, err)
		path, err := fs.Save(ctx, "overwrite.txt", []byte("updated"))
		require.NoError(t, err)

		content, _ := os.ReadFile(path)
		assert.Equal(t, []byte("updated"), content)
	})

	t.Run("traversal stays inside base", func(t *testing.T) {
		path, err := fs.Save(ctx, "../../etc/passwd", []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tempDir, "etc", "passwd"), path)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		_, err := fs.Save(ctx, "../..", []byte("x"))
		assert.Error(t, err)
	})
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "rapport_rules.pdf", want: "rapport_rules.pdf"},
		{in: "..", want: ""},
		{in: "a b/c", want: "abc"},
		{in: "règles", want: "rgles"},
		{in: `x\..\y`, want: "xy"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}
