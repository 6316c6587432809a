package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/bpmn/bpmntest"
)

func extractPersistence(t *testing.T, d bpmntest.Definition) schemas.PersistenceConfig {
	t.Helper()
	logger, _ := observedLogger()
	return NewPersistenceExtractor(logger).Extract(parse(t, d))
}

func TestPersistenceExtractor_MessageFlows(t *testing.T) {
	t.Run("JMS adapter with queue name", func(t *testing.T) {
		cfg := extractPersistence(t, flows(bpmntest.P("Name", "JMS_IN", "ComponentType", "JMS", "direction", "Sender", "queueName", "orders.q")))

		assert.True(t, cfg.JMSEnabled)
		require.Len(t, cfg.Details.JMSAdapters, 1)
		jms := cfg.Details.JMSAdapters[0]
		assert.Equal(t, "JMS_IN", jms.Name)
		assert.Equal(t, "orders.q", jms.QueueName)
		assert.Equal(t, "Sender", jms.Direction)
		assert.Equal(t, "orders.q", jms.Properties["queueName"])

		assert.True(t, cfg.MessagePersistenceEnabled, "JMS implies reliable delivery")
		require.Len(t, cfg.Details.MessagePersistence, 1)
		assert.Equal(t, schemas.SourceComponentType, cfg.Details.MessagePersistence[0].Source)
	})

	t.Run("queue name fallbacks", func(t *testing.T) {
		cfg := extractPersistence(t, flows(
			bpmntest.P("Name", "A", "ComponentType", "AdvancedEventMesh Queue", "QueueName_outbound", "out.q", "queueName", "ignored"),
			bpmntest.P("Name", "B", "ComponentType", "Kafka Topic", "topicName", "events"),
			bpmntest.P("Name", "C", "ComponentType", "JMS"),
		))
		require.Len(t, cfg.Details.JMSAdapters, 3)
		assert.Equal(t, "out.q", cfg.Details.JMSAdapters[0].QueueName)
		assert.Equal(t, "events", cfg.Details.JMSAdapters[1].QueueName)
		assert.Empty(t, cfg.Details.JMSAdapters[2].QueueName)
	})

	t.Run("persistence keys", func(t *testing.T) {
		cfg := extractPersistence(t, flows(
			bpmntest.P("Name", "AS2_IN", "ComponentType", "HTTPS", "persistMessage", "true", "durableSubscription", "yes"),
			bpmntest.P("Name", "OFF", "ComponentType", "HTTPS", "persistMessage", "false"),
		))
		assert.True(t, cfg.MessagePersistenceEnabled)
		require.Len(t, cfg.Details.MessagePersistence, 1)
		mp := cfg.Details.MessagePersistence[0]
		assert.Equal(t, "AS2_IN", mp.Name)
		assert.Equal(t, schemas.SourceProperty, mp.Source)
		assert.Equal(t, []string{"durableSubscription", "persistMessage"}, mp.Keys)
	})

	t.Run("data store properties", func(t *testing.T) {
		cfg := extractPersistence(t, flows(bpmntest.P(
			"Name", "DS",
			"ComponentType", "ProcessDirect",
			"dataStoreGetName", "orders",
			"dataStoreWriteMode", "append",
			"deleteDataStoreEntry", "true",
			"DataStoreVisibility", "global",
		)))
		assert.True(t, cfg.DataStoreEnabled)
		ops := cfg.Details.DataStoreOperations
		require.Len(t, ops, 4)
		assert.Equal(t, schemas.DataStoreGet, ops[0].Operation)
		assert.Equal(t, schemas.DataStorePut, ops[1].Operation)
		assert.Equal(t, schemas.DataStoreDelete, ops[2].Operation)
		assert.Equal(t, schemas.DataStoreUnknown, ops[3].Operation)
		assert.Equal(t, "DS", ops[0].Adapter)
		assert.Equal(t, "orders", ops[0].Value)
	})

	t.Run("plain adapter contributes nothing", func(t *testing.T) {
		cfg := extractPersistence(t, flows(bpmntest.P("Name", "H", "ComponentType", "HTTPS", "direction", "Sender")))
		assert.False(t, cfg.JMSEnabled || cfg.DataStoreEnabled || cfg.VariablesEnabled || cfg.MessagePersistenceEnabled)
		assert.Empty(t, cfg.Details.JMSAdapters)
		assert.NotNil(t, cfg.Details.ExternalCalls)
	})
}

func TestPersistenceExtractor_Collaboration(t *testing.T) {
	cfg := extractPersistence(t, bpmntest.Definition{CollaborationProps: bpmntest.P(
		"transactionalHandling", "Required",
		"processType", "ProcessDirect",
		"messagePersistenceEnabled", "true",
	)})
	assert.True(t, cfg.MessagePersistenceEnabled)
	assert.Equal(t, "Required", cfg.Details.TransactionalHandling)
	assert.Equal(t, "ProcessDirect", cfg.Details.ProcessType)
	assert.True(t, cfg.Details.DirectCall)
	require.Len(t, cfg.Details.MessagePersistence, 1)
	assert.Equal(t, []string{"messagePersistenceEnabled"}, cfg.Details.MessagePersistence[0].Keys)

	t.Run("None transactional handling does not enable persistence", func(t *testing.T) {
		cfg := extractPersistence(t, bpmntest.Definition{CollaborationProps: bpmntest.P("transactionalHandling", "None", "processType", "directProcess")})
		assert.False(t, cfg.MessagePersistenceEnabled)
		assert.Equal(t, "None", cfg.Details.TransactionalHandling)
		assert.False(t, cfg.Details.DirectCall)
	})

	t.Run("falls back to process transactional handling", func(t *testing.T) {
		cfg := extractPersistence(t, bpmntest.Definition{Processes: []bpmntest.Process{
			{ID: "P1"},
			{ID: "P2", Props: bpmntest.P("transactionalHandling", "Required")},
		}})
		assert.Equal(t, "Required", cfg.Details.TransactionalHandling)
		assert.False(t, cfg.MessagePersistenceEnabled)
	})
}

func TestPersistenceExtractor_Activities(t *testing.T) {
	cfg := extractPersistence(t, bpmntest.Definition{Processes: []bpmntest.Process{{
		ID: "Process_1",
		Elements: []bpmntest.Element{
			{Kind: "serviceTask", ID: "DS1", Name: "Write Orders", Props: bpmntest.P("activityType", "DBstorage", "operation", "put", "storageName", "orders")},
			{Kind: "serviceTask", ID: "DS2", Name: "Select Orders", Props: bpmntest.P("activityType", "DBstorage", "storageName", "orders")},
			{Kind: "scriptTask", ID: "SC1", Name: "Enrich", Script: `def msg = message.getProperty("orderId"); message.setHeader('X-Trace', "1"); message.setProperty(key, value)`},
			{Kind: "callActivity", ID: "CM1", Name: "Set Headers", Props: bpmntest.P("activityType", "Enricher", "headerTable", "<row>..</row>", "propertyTable", "")},
			{Kind: "callActivity", ID: "WV1", Name: "Write Variables", Props: bpmntest.P("activityType", "Variables")},
			{Kind: "callActivity", ID: "PC1", Name: "Call Local", Props: bpmntest.P("activityType", "ProcessCallElement", "processId", "Process_2")},
			{Kind: "callActivity", ID: "EX1", Name: "Request", Props: bpmntest.P("activityType", "ExternalCall")},
			{Kind: "callActivity", ID: "MP1", Name: "Map", Props: bpmntest.P("activityType", "Mapping")},
			{Kind: "callActivity", ID: "CE1", Name: "Called", Attrs: map[string]string{"calledElement": "Sub_1"}, Props: bpmntest.P("activityType", "Mapping")},
			{Kind: "serviceTask", ID: "RR1", Name: "Request Reply", Props: bpmntest.P("activityType", "Request-Reply", "address", "https://backend")},
		},
	}}})

	t.Run("data store activities", func(t *testing.T) {
		assert.True(t, cfg.DataStoreEnabled)
		acts := cfg.Details.DataStoreActivities
		require.Len(t, acts, 2)
		assert.Equal(t, "DS1", acts[0].ID)
		assert.Equal(t, "Process_1", acts[0].ProcessID)
		assert.Equal(t, "orders", acts[0].StoreName)
		assert.Equal(t, schemas.DataStorePut, acts[0].Operation)
		assert.Equal(t, schemas.DataStoreGet, acts[1].Operation, "falls back to the activity name")
	})

	t.Run("variable operations", func(t *testing.T) {
		assert.True(t, cfg.VariablesEnabled)
		var got []schemas.VariableOperation
		for _, op := range cfg.Details.VariableOperations {
			op.ProcessID = ""
			got = append(got, op)
		}
		assert.Equal(t, []schemas.VariableOperation{
			{ActivityID: "SC1", Name: "orderId", Access: schemas.VariableGet, Scope: schemas.ScopeProperty, Source: schemas.SourceScript},
			{ActivityID: "SC1", Name: "X-Trace", Access: schemas.VariableSet, Scope: schemas.ScopeHeader, Source: schemas.SourceScript},
			{ActivityID: "SC1", Name: "key", Access: schemas.VariableSet, Scope: schemas.ScopeProperty, Source: schemas.SourceScript},
			{ActivityID: "CM1", Name: "Set Headers", Access: schemas.VariableSet, Scope: schemas.ScopeHeader, Source: schemas.SourceProperty},
			{ActivityID: "WV1", Name: "Write Variables", Access: schemas.VariableSet, Scope: schemas.ScopeVariable, Source: schemas.SourceActivityType},
		}, got)
	})

	t.Run("external calls", func(t *testing.T) {
		type call struct {
			id   string
			kind schemas.ExternalCallKind
			ref  string
		}
		var got []call
		for _, c := range cfg.Details.ExternalCalls {
			got = append(got, call{c.ID, c.Kind, c.Reference})
		}
		assert.Equal(t, []call{
			{"CM1", schemas.CallKindExternal, ""},
			{"WV1", schemas.CallKindExternal, ""},
			{"PC1", schemas.CallKindProcessCall, "Process_2"},
			{"EX1", schemas.CallKindExternal, ""},
			{"MP1", schemas.CallKindExternal, ""},
			{"CE1", schemas.CallKindProcessCall, "Sub_1"},
			{"RR1", schemas.CallKindRequestReply, "https://backend"},
		}, got, "every call activity is recorded")
	})
}

func TestPersistenceExtractor_StoreMarkersAndBulkAccess(t *testing.T) {
	cfg := extractPersistence(t, bpmntest.Definition{Processes: []bpmntest.Process{{
		ID: "Process_1",
		Elements: []bpmntest.Element{
			{Kind: "scriptTask", ID: "SS1", Name: "Write Order", Script: `writeToStore(store)`},
			{Kind: "serviceTask", ID: "ST1", Name: "Keep Copy", Props: bpmntest.P("activityType", "StoreMessage")},
			{Kind: "callActivity", ID: "EN1", Name: "Enrich", Props: bpmntest.P("activityType", "Enricher")},
			{Kind: "scriptTask", ID: "SC2", Name: "Dump", Script: `def h = message.getHeaders(); def p = message.getProperties()`},
		},
	}}})

	assert.True(t, cfg.DataStoreEnabled)
	acts := cfg.Details.DataStoreActivities
	require.Len(t, acts, 2)
	assert.Equal(t, "SS1", acts[0].ID)
	assert.Equal(t, schemas.DataStorePut, acts[0].Operation)
	assert.Equal(t, "ST1", acts[1].ID)
	assert.Equal(t, "StoreMessage", acts[1].ActivityType)

	calls := cfg.Details.ExternalCalls
	require.Len(t, calls, 1)
	assert.Equal(t, "EN1", calls[0].ID)
	assert.Equal(t, schemas.CallKindExternal, calls[0].Kind)

	assert.Equal(t, []schemas.VariableOperation{
		{ProcessID: "Process_1", ActivityID: "SC2", Name: "Dump", Access: schemas.VariableGet, Scope: schemas.ScopeHeader, Source: schemas.SourceScript},
		{ProcessID: "Process_1", ActivityID: "SC2", Name: "Dump", Access: schemas.VariableGet, Scope: schemas.ScopeProperty, Source: schemas.SourceScript},
	}, cfg.Details.VariableOperations)
}
