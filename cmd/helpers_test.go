package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/bpmn/bpmntest"
	"github.com/xkilldash9x/flowlens/internal/config"
)

// MockStore is a mock implementation of artifactStore.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveArtifact(ctx context.Context, records *schemas.ArtifactRecords) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) History(ctx context.Context, artifactID string) ([]schemas.ChangeRecord, error) {
	args := m.Called(ctx, artifactID)
	changes, _ := args.Get(0).([]schemas.ChangeRecord)
	return changes, args.Error(1)
}

// MockStoreProvider hands out a fixed store and tracks cleanup.
type MockStoreProvider struct {
	mock.Mock
	CleanedUp bool
}

func (m *MockStoreProvider) Create(ctx context.Context, cfg *config.Config) (artifactStore, func(), error) {
	args := m.Called(ctx, cfg)
	s, _ := args.Get(0).(artifactStore)
	if args.Error(1) != nil {
		return nil, nil, args.Error(1)
	}
	return s, func() { m.CleanedUp = true }, nil
}

// newTestConfig returns the default configuration used by the command tests.
func newTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Logger.Level = "fatal"
	return cfg
}

// ordersDefinition is a small flow with one inbound adapter and a
// disclosing error configuration.
func ordersDefinition() bpmntest.Definition {
	return bpmntest.Definition{
		CollaborationProps: bpmntest.P("returnExceptionToSender", "true"),
		Flows: []bpmntest.Flow{
			{ID: "MessageFlow_1", Props: bpmntest.P("Name", "HTTPS_IN", "ComponentType", "HTTPS", "direction", "Sender", "senderAuthType", "BasicAuthentication")},
		},
		Processes: []bpmntest.Process{{ID: "Process_1", Name: "Integration Process"}},
	}
}

// writeArchive stores an exported flow archive under dir and returns its path.
func writeArchive(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name+".zip")
	require.NoError(t, os.WriteFile(path, bpmntest.FlowArchive(t, name, ordersDefinition()), 0o600))
	return path
}
