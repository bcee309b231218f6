// internal/common/database/audit.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
)

// AuditEntry is one row of audit_log.
type AuditEntry struct {
	EventType    string
	ResourceType string
	ResourceID   string
	ActorID      string
	Details      map[string]interface{}
}

// RecordAudit inserts entry through q, so it joins the caller's transaction when q is a *sql.Tx.
func RecordAudit(ctx context.Context, q Querier, entry AuditEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, actor_id, details)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.EventType, entry.ResourceType, entry.ResourceID, entry.ActorID, detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
