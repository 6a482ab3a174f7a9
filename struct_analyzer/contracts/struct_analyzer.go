package contracts

import (
	"context"

	"github.com/ouywm/confrs/struct_analyzer/models"
)

// IStructAnalyzer is the query surface of the configuration-struct engine.
// Resolution methods return nil (with a nil error) for anything that does
// not resolve; errors are reserved for scan-level failures such as
// cancellation.
type IStructAnalyzer interface {
	FindConfigStructs(ctx context.Context) ([]*models.Declaration, error)
	GetConfigFields(ctx context.Context, sectionPath string) ([]*models.Field, error)
	ResolveStructForSection(ctx context.Context, sectionPath, fromFile string) (*models.Declaration, error)
	FindFieldInStruct(ctx context.Context, d *models.Declaration, name string) (*models.Field, error)
	ResolveFieldForKeyPath(ctx context.Context, d *models.Declaration, dottedPath string) (*models.Field, error)
	FindEnumByTypeName(ctx context.Context, name string) (*models.Declaration, error)
	CacheStats() map[string]interface{}
	ClearCache() error
}
