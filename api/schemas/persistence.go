package schemas

// -- Persistence Schemas --

// DataStoreOperation is a best-effort CRUD classification of a data store access.
type DataStoreOperation string

const (
	DataStoreGet     DataStoreOperation = "Get"
	DataStorePut     DataStoreOperation = "Put"
	DataStoreDelete  DataStoreOperation = "Delete"
	DataStoreUnknown DataStoreOperation = "Unknown"
)

// VariableAccess is the direction of a variable, property or header access.
type VariableAccess string

const (
	VariableSet VariableAccess = "Set"
	VariableGet VariableAccess = "Get"
)

// VariableScope is what a variable operation touches.
type VariableScope string

const (
	ScopeVariable VariableScope = "Variable"
	ScopeProperty VariableScope = "Property"
	ScopeHeader   VariableScope = "Header"
)

// Evidence sources shared by persistence detail records.
const (
	SourceProperty      = "property"
	SourceScript        = "script"
	SourceComponentType = "component_type"
	SourceActivityType  = "activity_type"
)

// ExternalCallKind distinguishes the shapes of external call.
type ExternalCallKind string

const (
	CallKindProcessCall  ExternalCallKind = "ProcessCall"
	CallKindRequestReply ExternalCallKind = "RequestReply"
	CallKindExternal     ExternalCallKind = "External"
)

// PersistenceConfig is the per-artifact aggregate of persistence and
// durability usage. Exactly one exists per artifact.
type PersistenceConfig struct {
	ArtifactID                string             `json:"artifact_id"`
	JMSEnabled                bool               `json:"jms_enabled"`
	DataStoreEnabled          bool               `json:"data_store_enabled"`
	VariablesEnabled          bool               `json:"variables_enabled"`
	MessagePersistenceEnabled bool               `json:"message_persistence_enabled"`
	Details                   PersistenceDetails `json:"details"`
}

// PersistenceDetails merges evidence from the collaboration, the processes
// and the message flows.
type PersistenceDetails struct {
	JMSAdapters           []JMSAdapter                `json:"jms_adapters"`
	MessagePersistence    []MessagePersistenceAdapter `json:"message_persistence"`
	DataStoreOperations   []DataStoreAccess           `json:"data_store_operations"`
	DataStoreActivities   []DataStoreActivity         `json:"data_store_activities"`
	VariableOperations    []VariableOperation         `json:"variable_operations"`
	ExternalCalls         []ExternalCall              `json:"external_calls"`
	TransactionalHandling string                      `json:"transactional_handling,omitempty"`
	ProcessType           string                      `json:"process_type,omitempty"`
	DirectCall            bool                        `json:"direct_call"`
}

// JMSAdapter is a message flow backed by a JMS queue or topic.
type JMSAdapter struct {
	Name          string            `json:"name"`
	ComponentType string            `json:"component_type"`
	Direction     string            `json:"direction,omitempty"`
	QueueName     string            `json:"queue_name,omitempty"`
	Properties    map[string]string `json:"properties"`
}

// MessagePersistenceAdapter is a message flow that declares durable or
// reliable delivery.
type MessagePersistenceAdapter struct {
	Name          string   `json:"name"`
	ComponentType string   `json:"component_type"`
	Source        string   `json:"source"`
	Keys          []string `json:"keys,omitempty"`
}

// DataStoreAccess is a data store reference found on a message flow.
type DataStoreAccess struct {
	Adapter   string             `json:"adapter"`
	Key       string             `json:"key"`
	Value     string             `json:"value,omitempty"`
	Operation DataStoreOperation `json:"operation"`
}

// DataStoreActivity is a process step that reads or writes a data store.
type DataStoreActivity struct {
	ProcessID    string             `json:"process_id"`
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	ActivityType string             `json:"activity_type,omitempty"`
	StoreName    string             `json:"store_name,omitempty"`
	Operation    DataStoreOperation `json:"operation"`
}

// VariableOperation is a get or set of a variable, exchange property or header.
type VariableOperation struct {
	ProcessID  string         `json:"process_id"`
	ActivityID string         `json:"activity_id"`
	Name       string         `json:"name"`
	Access     VariableAccess `json:"access"`
	Scope      VariableScope  `json:"scope"`
	Source     string         `json:"source"`
}

// ExternalCall is a call activity or a request-reply step.
type ExternalCall struct {
	ProcessID    string           `json:"process_id"`
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Kind         ExternalCallKind `json:"kind"`
	ActivityType string           `json:"activity_type,omitempty"`
	Reference    string           `json:"reference,omitempty"`
}
