// test/mock/audit.go
package mock

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/hoteltrack/api/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Append(ctx context.Context, entry audit.NewEntry) (*audit.AuditEntry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.AuditEntry), args.Error(1)
}

func (m *MockAuditService) Verify(ctx context.Context, rng audit.Range) (*audit.Report, error) {
	args := m.Called(ctx, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Report), args.Error(1)
}

func (m *MockAuditService) VerifyRecent(ctx context.Context, limit int) (*audit.Report, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Report), args.Error(1)
}

func (m *MockAuditService) ArchiveOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	args := m.Called(ctx, retention)
	return args.Get(0).(int64), args.Error(1)
}

// Export writes the mocked body, when one is configured, to w.
func (m *MockAuditService) Export(ctx context.Context, w io.Writer, rng audit.Range) (int, error) {
	args := m.Called(ctx, w, rng)
	if body, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, body)
	}
	return args.Int(1), args.Error(2)
}

func (m *MockAuditService) ListEntries(ctx context.Context, filter audit.Filter) ([]audit.AuditEntry, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]audit.AuditEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockAuditService) GetEntry(ctx context.Context, id string) (*audit.AuditEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.AuditEntry), args.Error(1)
}

func (m *MockAuditService) SearchEntries(ctx context.Context, q audit.SearchQuery) ([]audit.SearchDocument, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.SearchDocument), args.Error(1)
}
