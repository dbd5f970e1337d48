// test/mock/catalog.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hoteltrack/api/model"
)

// MockCatalog is a mock implementation of dao.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GrantsForRole(ctx context.Context, role string) ([]model.Grant, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Grant), args.Error(1)
}
