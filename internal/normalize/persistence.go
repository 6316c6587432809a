package normalize

import (
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/taxonomy"
)

const stagePersistence = "persistence"

// PersistenceProcessor normalizes the persistence aggregate.
type PersistenceProcessor struct {
	maxLen int
	logger *zap.Logger
}

// NewPersistenceProcessor creates a PersistenceProcessor.
func NewPersistenceProcessor(maxLen int, logger *zap.Logger) *PersistenceProcessor {
	return &PersistenceProcessor{maxLen: maxOrDefault(maxLen), logger: logger.Named("persistence_processor")}
}

// Process bounds every string, drops detail records without an identity
// and stamps the artifact id.
func (p *PersistenceProcessor) Process(artifactID string, raw schemas.PersistenceConfig) (schemas.PersistenceConfig, []schemas.Diagnostic) {
	c := newCollector(stagePersistence, p.maxLen, p.logger)
	in := raw.Details

	out := raw
	out.ArtifactID = artifactID
	d := schemas.PersistenceDetails{
		JMSAdapters:           make([]schemas.JMSAdapter, 0, len(in.JMSAdapters)),
		MessagePersistence:    make([]schemas.MessagePersistenceAdapter, 0, len(in.MessagePersistence)),
		DataStoreOperations:   make([]schemas.DataStoreAccess, 0, len(in.DataStoreOperations)),
		DataStoreActivities:   make([]schemas.DataStoreActivity, 0, len(in.DataStoreActivities)),
		VariableOperations:    make([]schemas.VariableOperation, 0, len(in.VariableOperations)),
		ExternalCalls:         make([]schemas.ExternalCall, 0, len(in.ExternalCalls)),
		TransactionalHandling: c.clip("collaboration", "transactional_handling", in.TransactionalHandling),
		ProcessType:           c.clip("collaboration", "process_type", in.ProcessType),
		DirectCall:            in.DirectCall,
	}

	for _, j := range in.JMSAdapters {
		if strings.TrimSpace(j.Name) == "" {
			c.reject(j.ComponentType, "JMS adapter without name")
			continue
		}
		j.Name = c.clip(j.Name, "name", j.Name)
		j.QueueName = c.clip(j.Name, "queue_name", j.QueueName)
		props := make(map[string]string, len(j.Properties))
		for _, k := range sortedKeys(j.Properties) {
			props[k] = c.clip(j.Name, "properties."+k, j.Properties[k])
		}
		j.Properties = props
		d.JMSAdapters = append(d.JMSAdapters, j)
	}

	for _, m := range in.MessagePersistence {
		if strings.TrimSpace(m.Name) == "" {
			c.reject(m.ComponentType, "message persistence record without name")
			continue
		}
		m.Name = c.clip(m.Name, "name", m.Name)
		d.MessagePersistence = append(d.MessagePersistence, m)
	}

	for _, op := range in.DataStoreOperations {
		if op.Key == "" {
			c.reject(op.Adapter, "data store operation without key")
			continue
		}
		op.Value = c.clip(op.Adapter, "value", op.Value)
		if op.Operation == "" {
			op.Operation = schemas.DataStoreUnknown
		}
		d.DataStoreOperations = append(d.DataStoreOperations, op)
	}

	for _, a := range in.DataStoreActivities {
		if a.ID == "" && a.Name == "" {
			c.reject(a.ProcessID, "data store activity without id or name")
			continue
		}
		subject := firstNonEmpty(a.Name, a.ID)
		a.Name = c.clip(subject, "name", a.Name)
		a.StoreName = c.clip(subject, "store_name", a.StoreName)
		if a.Operation == "" {
			a.Operation = schemas.DataStoreUnknown
		}
		d.DataStoreActivities = append(d.DataStoreActivities, a)
	}

	for _, v := range in.VariableOperations {
		if v.Name == "" {
			c.reject(v.ActivityID, "variable operation without name")
			continue
		}
		v.Name = c.clip(v.Name, "name", v.Name)
		d.VariableOperations = append(d.VariableOperations, v)
	}

	for _, call := range in.ExternalCalls {
		if call.ID == "" && call.Name == "" {
			c.reject(call.ProcessID, "external call without id or name")
			continue
		}
		subject := firstNonEmpty(call.Name, call.ID)
		call.Name = c.clip(subject, "name", call.Name)
		call.Reference = c.clip(subject, "reference", call.Reference)
		d.ExternalCalls = append(d.ExternalCalls, call)
	}

	out.Details = d
	return out, c.diags
}

// Recommendations derives advisory findings from a normalized aggregate.
func (p *PersistenceProcessor) Recommendations(cfg schemas.PersistenceConfig) []schemas.Recommendation {
	var recs []schemas.Recommendation
	d := cfg.Details

	persistent := cfg.JMSEnabled || cfg.DataStoreEnabled || cfg.MessagePersistenceEnabled
	if persistent && !hasTransactions(d.TransactionalHandling) {
		recs = append(recs, schemas.Recommendation{
			Code:     "PERSIST-NO-TX",
			Area:     schemas.AreaPersistence,
			Severity: schemas.SeverityMedium,
			Subject:  "Collaboration",
			Message:  "Persistence is used without transactional handling; a failure can leave messages half processed.",
		})
	}

	writes, deletes := false, false
	for _, a := range d.DataStoreActivities {
		writes = writes || a.Operation == schemas.DataStorePut
		deletes = deletes || a.Operation == schemas.DataStoreDelete
	}
	for _, op := range d.DataStoreOperations {
		writes = writes || op.Operation == schemas.DataStorePut
		deletes = deletes || op.Operation == schemas.DataStoreDelete
	}
	if writes && !deletes {
		recs = append(recs, schemas.Recommendation{
			Code:     "PERSIST-DATASTORE-CLEANUP",
			Area:     schemas.AreaPersistence,
			Severity: schemas.SeverityLow,
			Subject:  "DataStore",
			Message:  "Data store entries are written but never deleted; rely on expiry or add a cleanup step.",
		})
	}

	for _, j := range d.JMSAdapters {
		if j.QueueName == "" {
			recs = append(recs, schemas.Recommendation{
				Code:     "PERSIST-JMS-NO-QUEUE",
				Area:     schemas.AreaPersistence,
				Severity: schemas.SeverityLow,
				Subject:  j.Name,
				Message:  "JMS adapter has no resolvable queue name.",
			})
		}
	}
	return recs
}

func hasTransactions(handling string) bool {
	if taxonomy.IsNone(handling) {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(handling), "Not Required")
}
