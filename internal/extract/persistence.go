package extract

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/bpmn"
	"github.com/xkilldash9x/flowlens/internal/taxonomy"
)

const (
	processTypeDirect    = "ProcessDirect"
	collaborationSubject = "Collaboration"
)

var (
	// queueKeys are tried in order for a JMS destination.
	queueKeys = []string{"QueueName_inbound", "QueueName_outbound", "queueName", "QueueName", "Destination", "topicName"}

	jmsMarkers         = []string{"jms", "queue", "topic"}
	persistenceMarkers = []string{"persist", "durable", "reliable"}
	dataStoreMarkers   = []string{"datastore", "dbstorage"}

	// storeMarkers also match activity types and scripts, where a bare
	// "store" names the step rather than some unrelated property.
	storeMarkers = append([]string{"store"}, dataStoreMarkers...)

	// reliableComponentTypes imply guaranteed delivery on their own.
	reliableComponentTypes = []string{"jms", "as2", "as4", "amqp", "kafka"}

	// scriptAccess captures script calls such as setProperty("orderId", ...)
	// and the bulk forms getHeaders() and getProperties().
	scriptAccess = regexp.MustCompile(`\b(set|get)(Propert(?:y|ies)|Headers?)\s*\(\s*["']?([\w.\-]*)`)

	// storeNameKeys are tried in order for a data store name.
	storeNameKeys = []string{"storageName", "storeName", "dataStoreName", "DataStoreName"}
)

// variableTables are property keys whose non-empty value lists assignments.
var variableTables = map[string]schemas.VariableScope{
	"headerTable":   schemas.ScopeHeader,
	"propertyTable": schemas.ScopeProperty,
	"variable":      schemas.ScopeVariable,
}

// PersistenceExtractor merges persistence evidence from the collaboration,
// every process and every message flow.
type PersistenceExtractor struct {
	logger *zap.Logger
}

// NewPersistenceExtractor creates a PersistenceExtractor.
func NewPersistenceExtractor(logger *zap.Logger) *PersistenceExtractor {
	return &PersistenceExtractor{logger: logger.Named("persistence_extractor")}
}

// Extract returns the merged aggregate. Sources only add evidence; booleans
// are OR'd across sources. ArtifactID is left for the caller to fill.
func (e *PersistenceExtractor) Extract(doc *bpmn.Document) schemas.PersistenceConfig {
	cfg := schemas.PersistenceConfig{Details: schemas.PersistenceDetails{
		JMSAdapters:         []schemas.JMSAdapter{},
		MessagePersistence:  []schemas.MessagePersistenceAdapter{},
		DataStoreOperations: []schemas.DataStoreAccess{},
		DataStoreActivities: []schemas.DataStoreActivity{},
		VariableOperations:  []schemas.VariableOperation{},
		ExternalCalls:       []schemas.ExternalCall{},
	}}

	e.fromCollaboration(doc, &cfg)
	if doc != nil {
		for i, process := range doc.Processes {
			e.fromProcess(processID(process, i), process, &cfg)
		}
	}
	for _, mf := range doc.MessageFlows() {
		e.fromMessageFlow(mf, &cfg)
	}

	e.logger.Debug("Persistence extraction complete",
		zap.Bool("jms", cfg.JMSEnabled),
		zap.Bool("data_store", cfg.DataStoreEnabled),
		zap.Bool("variables", cfg.VariablesEnabled),
		zap.Bool("message_persistence", cfg.MessagePersistenceEnabled))
	return cfg
}

func (e *PersistenceExtractor) fromCollaboration(doc *bpmn.Document, cfg *schemas.PersistenceConfig) {
	props := doc.CollaborationProperties()
	d := &cfg.Details

	if handling := strings.TrimSpace(bpmn.GetProperty(props, "transactionalHandling")); handling != "" {
		d.TransactionalHandling = handling
		if !taxonomy.IsNone(handling) {
			cfg.MessagePersistenceEnabled = true
		}
	} else if doc != nil {
		// Record the first process-level setting; it does not enable persistence.
		for _, p := range doc.Processes {
			if h := bpmn.GetProperty(bpmn.Properties(p), "transactionalHandling"); h != "" {
				d.TransactionalHandling = h
				break
			}
		}
	}

	if pt := strings.TrimSpace(bpmn.GetProperty(props, "processType")); pt != "" {
		d.ProcessType = pt
		d.DirectCall = strings.EqualFold(pt, processTypeDirect)
	}

	var flags []string
	for _, key := range []string{"messagePersistenceEnabled", "persist"} {
		if taxonomy.CoerceBool(bpmn.GetProperty(props, key)) {
			flags = append(flags, key)
		}
	}
	if len(flags) > 0 {
		cfg.MessagePersistenceEnabled = true
		d.MessagePersistence = append(d.MessagePersistence, schemas.MessagePersistenceAdapter{
			Name:   collaborationSubject,
			Source: schemas.SourceProperty,
			Keys:   flags,
		})
	}
}

func (e *PersistenceExtractor) fromProcess(pid string, process *bpmn.Node, cfg *schemas.PersistenceConfig) {
	d := &cfg.Details
	for _, a := range activities(process) {
		if ds, ok := dataStoreActivity(pid, a); ok {
			d.DataStoreActivities = append(d.DataStoreActivities, ds)
			cfg.DataStoreEnabled = true
		}

		if ops := variableOperations(pid, a); len(ops) > 0 {
			d.VariableOperations = append(d.VariableOperations, ops...)
			cfg.VariablesEnabled = true
		}

		if call, ok := externalCall(pid, a); ok {
			d.ExternalCalls = append(d.ExternalCalls, call)
		}
	}
}

func dataStoreActivity(pid string, a activity) (schemas.DataStoreActivity, bool) {
	matched := containsAnyFold(a.activityType, storeMarkers...) ||
		containsAnyFold(a.script, storeMarkers...)
	if !matched {
		for _, p := range a.props {
			if containsAnyFold(p.Key, dataStoreMarkers...) || containsAnyFold(p.Value, dataStoreMarkers...) {
				matched = true
				break
			}
		}
	}
	if !matched {
		return schemas.DataStoreActivity{}, false
	}

	var storeName string
	for _, key := range storeNameKeys {
		if v := bpmn.GetProperty(a.props, key); v != "" {
			storeName = v
			break
		}
	}
	op := dataStoreOperation(bpmn.GetProperty(a.props, "operation"))
	if op == schemas.DataStoreUnknown {
		op = dataStoreOperation(a.name())
	}
	return schemas.DataStoreActivity{
		ProcessID:    pid,
		ID:           a.id(),
		Name:         a.name(),
		ActivityType: a.activityType,
		StoreName:    storeName,
		Operation:    op,
	}, true
}

// dataStoreOperation classifies by substring: delete before put before get,
// so "deleteAfterGet" counts as a delete.
func dataStoreOperation(s string) schemas.DataStoreOperation {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "delete") || strings.Contains(lower, "remove"):
		return schemas.DataStoreDelete
	case strings.Contains(lower, "put") || strings.Contains(lower, "write"):
		return schemas.DataStorePut
	case strings.Contains(lower, "get") || strings.Contains(lower, "select") || strings.Contains(lower, "read"):
		return schemas.DataStoreGet
	}
	return schemas.DataStoreUnknown
}

func variableOperations(pid string, a activity) []schemas.VariableOperation {
	var ops []schemas.VariableOperation
	seen := map[schemas.VariableOperation]bool{}
	add := func(op schemas.VariableOperation) {
		if !seen[op] {
			seen[op] = true
			ops = append(ops, op)
		}
	}

	scripts := []string{a.script}
	for _, p := range a.props {
		scripts = append(scripts, p.Value)
	}
	for _, body := range scripts {
		for _, m := range scriptAccess.FindAllStringSubmatch(body, -1) {
			access := schemas.VariableSet
			if m[1] == "get" {
				access = schemas.VariableGet
			}
			scope := schemas.ScopeProperty
			if strings.HasPrefix(m[2], "Header") {
				scope = schemas.ScopeHeader
			}
			name := m[3]
			if name == "" {
				name = a.name()
			}
			add(schemas.VariableOperation{
				ProcessID: pid, ActivityID: a.id(), Name: name,
				Access: access, Scope: scope, Source: schemas.SourceScript,
			})
		}
	}

	for _, p := range a.props {
		scope, ok := variableTables[p.Key]
		if !ok || strings.TrimSpace(p.Value) == "" {
			continue
		}
		add(schemas.VariableOperation{
			ProcessID: pid, ActivityID: a.id(), Name: a.name(),
			Access: schemas.VariableSet, Scope: scope, Source: schemas.SourceProperty,
		})
	}

	if strings.EqualFold(a.activityType, "Variables") && len(ops) == 0 {
		add(schemas.VariableOperation{
			ProcessID: pid, ActivityID: a.id(), Name: a.name(),
			Access: schemas.VariableSet, Scope: schemas.ScopeVariable, Source: schemas.SourceActivityType,
		})
	}
	return ops
}

func externalCall(pid string, a activity) (schemas.ExternalCall, bool) {
	call := schemas.ExternalCall{
		ProcessID:    pid,
		ID:           a.id(),
		Name:         a.name(),
		ActivityType: a.activityType,
	}
	switch a.node.Name {
	case "callActivity":
		processRef := bpmn.GetProperty(a.props, "processId")
		calledElement := a.node.Attr("calledElement")
		call.Kind = schemas.CallKindExternal
		switch {
		case processRef != "":
			call.Kind, call.Reference = schemas.CallKindProcessCall, processRef
		case calledElement != "":
			call.Kind, call.Reference = schemas.CallKindProcessCall, calledElement
		case containsFold(a.activityType, "process"):
			call.Kind = schemas.CallKindProcessCall
		}
		return call, true

	case "serviceTask":
		if containsAnyFold(a.activityType, "external", "request-reply", "requestreply") {
			call.Kind = schemas.CallKindRequestReply
			call.Reference = bpmn.GetProperty(a.props, "address")
			return call, true
		}
	}
	return call, false
}

func (e *PersistenceExtractor) fromMessageFlow(mf bpmn.MessageFlow, cfg *schemas.PersistenceConfig) {
	props := mf.Properties
	d := &cfg.Details
	name := flowName(mf)
	componentType := bpmn.GetProperty(props, "ComponentType")

	if containsAnyFold(componentType, jmsMarkers...) {
		var queue string
		for _, key := range queueKeys {
			if v := bpmn.GetProperty(props, key); v != "" {
				queue = v
				break
			}
		}
		d.JMSAdapters = append(d.JMSAdapters, schemas.JMSAdapter{
			Name:          name,
			ComponentType: componentType,
			Direction:     bpmn.GetProperty(props, "direction"),
			QueueName:     queue,
			Properties:    bpmn.PropertyMap(props),
		})
		cfg.JMSEnabled = true
	}

	var persistKeys []string
	for _, p := range props {
		if containsAnyFold(p.Key, persistenceMarkers...) && !taxonomy.IsFalsy(p.Value) {
			persistKeys = append(persistKeys, p.Key)
		}
	}
	sort.Strings(persistKeys)
	switch {
	case len(persistKeys) > 0:
		d.MessagePersistence = append(d.MessagePersistence, schemas.MessagePersistenceAdapter{
			Name: name, ComponentType: componentType, Source: schemas.SourceProperty, Keys: persistKeys,
		})
		cfg.MessagePersistenceEnabled = true
	case impliesReliability(componentType):
		d.MessagePersistence = append(d.MessagePersistence, schemas.MessagePersistenceAdapter{
			Name: name, ComponentType: componentType, Source: schemas.SourceComponentType,
		})
		cfg.MessagePersistenceEnabled = true
	}

	for _, p := range props {
		if !containsFold(p.Key, "datastore") {
			continue
		}
		d.DataStoreOperations = append(d.DataStoreOperations, schemas.DataStoreAccess{
			Adapter:   name,
			Key:       p.Key,
			Value:     p.Value,
			Operation: dataStoreOperation(p.Key),
		})
		cfg.DataStoreEnabled = true
	}
}

func impliesReliability(componentType string) bool {
	if strings.EqualFold(strings.TrimSpace(componentType), "xi") {
		return true
	}
	return containsAnyFold(componentType, reliableComponentTypes...)
}
