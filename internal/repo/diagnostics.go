package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/repairdesk/repairdesk-search/internal/diagnostics"
	"github.com/repairdesk/repairdesk-search/internal/utils"
)

// FetchDiagnostics loads the sparse diagnostic record of one ticket. found is
// false when the service has none yet, which is not an error.
func (c *RecordsClient) FetchDiagnostics(ctx context.Context, tenantID, recordID string) (rec diagnostics.Record, found bool, err error) {
	const op = "repo.FetchDiagnostics"
	if err := c.ready(op); err != nil {
		return nil, false, err
	}
	if recordID == "" {
		return nil, false, utils.NewAppError(op, utils.KindValidation, "record id is required", nil)
	}

	body, err := c.doJSON(ctx, op, http.MethodGet, c.diagnosticsURL(recordID), tenantID, nil)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rec, err = decodeDiagnostics(body)
	if err != nil {
		c.logger.Warn("diagnostic payload not decodable", slog.String("record_id", recordID), slog.Any("error", err))
		return diagnostics.Record{}, true, nil
	}
	return rec, true, nil
}

// decodeDiagnostics accepts the bare attribute map or one wrapped in
// {"attributes": {...}} / {"data": {...}}.
func decodeDiagnostics(body []byte) (diagnostics.Record, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	for _, field := range []string{"attributes", "data"} {
		if inner, ok := raw[field].(map[string]any); ok {
			return diagnostics.Record(inner), nil
		}
	}
	return diagnostics.Record(raw), nil
}

type diagnosticsPayload struct {
	TenantID      string          `json:"tenantId"`
	RecordID      string          `json:"recordId"`
	SchemaVersion int             `json:"schemaVersion"`
	Attributes    map[string]bool `json:"attributes"`
}

// UpsertDiagnostics writes the full canonical sheet for a record. When
// fillAbsent is false an untested attribute refuses the write.
func (c *RecordsClient) UpsertDiagnostics(ctx context.Context, tenantID, recordID string, rec diagnostics.Record, fillAbsent bool) error {
	const op = "repo.UpsertDiagnostics"
	if err := c.ready(op); err != nil {
		return err
	}
	sheet, err := diagnostics.Sheet(rec, fillAbsent)
	if err != nil {
		return utils.NewAppError(op, utils.KindValidation, "incomplete diagnostic sheet", err)
	}
	payload := diagnosticsPayload{
		TenantID:      tenantID,
		RecordID:      recordID,
		SchemaVersion: diagnostics.SchemaVersion,
		Attributes:    sheet,
	}
	if _, err := c.doJSON(ctx, op, http.MethodPut, c.diagnosticsURL(recordID), tenantID, payload); err != nil {
		return fmt.Errorf("upsert diagnostics %s: %w", recordID, err)
	}
	return nil
}

func (c *RecordsClient) diagnosticsURL(recordID string) string {
	return c.resolvePath(c.paths.Diagnostics) + "/" + url.PathEscape(recordID)
}
