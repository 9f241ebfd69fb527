package port

import "context"

// ExportStorage writes rendered exports under a base directory
type ExportStorage interface {
	Save(ctx context.Context, name string, content []byte) (string, error)
	Exists(ctx context.Context, name string) bool
}
