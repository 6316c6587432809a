package store

// migrations create the schema. Every statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS adapters (
        id UUID PRIMARY KEY,
        artifact_id TEXT NOT NULL,
        name VARCHAR(255) NOT NULL,
        type VARCHAR(255) NOT NULL,
        category VARCHAR(32) NOT NULL,
        direction VARCHAR(32) NOT NULL,
        address VARCHAR(255) NOT NULL DEFAULT '',
        cmd_variant_uri VARCHAR(255) NOT NULL DEFAULT '',
        properties JSONB NOT NULL DEFAULT '{}',
        content_hash CHAR(64) NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (artifact_id, name)
    );`,
	`CREATE TABLE IF NOT EXISTS security_mechanisms (
        id UUID PRIMARY KEY,
        artifact_id TEXT NOT NULL,
        name VARCHAR(255) NOT NULL,
        type VARCHAR(64) NOT NULL,
        direction VARCHAR(32) NOT NULL,
        enabled BOOLEAN NOT NULL DEFAULT TRUE,
        configuration JSONB NOT NULL DEFAULT '{}',
        content_hash CHAR(64) NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (artifact_id, name)
    );`,
	`CREATE TABLE IF NOT EXISTS error_handling_configs (
        id UUID PRIMARY KEY,
        artifact_id TEXT NOT NULL UNIQUE,
        detection_enabled BOOLEAN NOT NULL,
        logging_enabled BOOLEAN NOT NULL,
        classification_enabled BOOLEAN NOT NULL,
        reporting_enabled BOOLEAN NOT NULL,
        details JSONB NOT NULL DEFAULT '{}',
        content_hash CHAR(64) NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`,
	`CREATE TABLE IF NOT EXISTS persistence_configs (
        id UUID PRIMARY KEY,
        artifact_id TEXT NOT NULL UNIQUE,
        jms_enabled BOOLEAN NOT NULL,
        data_store_enabled BOOLEAN NOT NULL,
        variables_enabled BOOLEAN NOT NULL,
        message_persistence_enabled BOOLEAN NOT NULL,
        details JSONB NOT NULL DEFAULT '{}',
        content_hash CHAR(64) NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`,
	`CREATE TABLE IF NOT EXISTS change_history (
        id UUID PRIMARY KEY,
        artifact_id TEXT NOT NULL,
        record_type VARCHAR(32) NOT NULL,
        record_name VARCHAR(255) NOT NULL,
        previous_hash CHAR(64) NOT NULL,
        current_hash CHAR(64) NOT NULL,
        changed_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`,
	`CREATE INDEX IF NOT EXISTS idx_change_history_artifact ON change_history (artifact_id, changed_at);`,
}

const (
	sqlSelectAdapter = `
        SELECT id, content_hash FROM adapters
        WHERE artifact_id = $1 AND name = $2;
    `
	sqlInsertAdapter = `
        INSERT INTO adapters (id, artifact_id, name, type, category, direction, address, cmd_variant_uri, properties, content_hash)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
    `
	sqlUpdateAdapter = `
        UPDATE adapters SET
            artifact_id = $2, name = $3, type = $4, category = $5, direction = $6,
            address = $7, cmd_variant_uri = $8, properties = $9, content_hash = $10,
            updated_at = now()
        WHERE id = $1;
    `

	sqlSelectSecurity = `
        SELECT id, content_hash FROM security_mechanisms
        WHERE artifact_id = $1 AND name = $2;
    `
	sqlInsertSecurity = `
        INSERT INTO security_mechanisms (id, artifact_id, name, type, direction, enabled, configuration, content_hash)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
    `
	sqlUpdateSecurity = `
        UPDATE security_mechanisms SET
            artifact_id = $2, name = $3, type = $4, direction = $5, enabled = $6,
            configuration = $7, content_hash = $8, updated_at = now()
        WHERE id = $1;
    `

	sqlSelectErrorHandling = `
        SELECT id, content_hash FROM error_handling_configs
        WHERE artifact_id = $1;
    `
	sqlInsertErrorHandling = `
        INSERT INTO error_handling_configs (id, artifact_id, detection_enabled, logging_enabled, classification_enabled, reporting_enabled, details, content_hash)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
    `
	sqlUpdateErrorHandling = `
        UPDATE error_handling_configs SET
            artifact_id = $2, detection_enabled = $3, logging_enabled = $4, classification_enabled = $5,
            reporting_enabled = $6, details = $7, content_hash = $8, updated_at = now()
        WHERE id = $1;
    `

	sqlSelectPersistence = `
        SELECT id, content_hash FROM persistence_configs
        WHERE artifact_id = $1;
    `
	sqlInsertPersistence = `
        INSERT INTO persistence_configs (id, artifact_id, jms_enabled, data_store_enabled, variables_enabled, message_persistence_enabled, details, content_hash)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
    `
	sqlUpdatePersistence = `
        UPDATE persistence_configs SET
            artifact_id = $2, jms_enabled = $3, data_store_enabled = $4, variables_enabled = $5,
            message_persistence_enabled = $6, details = $7, content_hash = $8, updated_at = now()
        WHERE id = $1;
    `

	sqlInsertChange = `
        INSERT INTO change_history (id, artifact_id, record_type, record_name, previous_hash, current_hash)
        VALUES ($1, $2, $3, $4, $5, $6);
    `
	sqlSelectHistory = `
        SELECT id, record_type, record_name, previous_hash, current_hash, changed_at
        FROM change_history
        WHERE artifact_id = $1
        ORDER BY changed_at ASC, id ASC;
    `
)
