package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/repairdesk/repairdesk-search/internal/models"
)

const defaultLookupLimit = 10

type lookupPayload struct {
	TenantID string `json:"tenantId"`
	Query    string `json:"query"`
	Limit    int    `json:"limit"`
}

// LookupCustomers returns customer candidates for a free-text query.
func (c *RecordsClient) LookupCustomers(ctx context.Context, tenantID, query string, limit int) ([]models.DirectoryEntry, error) {
	return c.Lookup(ctx, models.LookupRequest{TenantID: tenantID, Directory: models.DirectoryCustomers, Query: query, Limit: limit})
}

// LookupDevices returns device candidates for a free-text query.
func (c *RecordsClient) LookupDevices(ctx context.Context, tenantID, query string, limit int) ([]models.DirectoryEntry, error) {
	return c.Lookup(ctx, models.LookupRequest{TenantID: tenantID, Directory: models.DirectoryDevices, Query: query, Limit: limit})
}

// Lookup queries one directory. Results are cached for the configured TTL and
// identical concurrent queries share a single upstream request.
func (c *RecordsClient) Lookup(ctx context.Context, req models.LookupRequest) ([]models.DirectoryEntry, error) {
	const op = "repo.Lookup"
	if err := c.ready(op); err != nil {
		return nil, err
	}
	req = normalizeLookup(req)

	key := lookupCacheKey(req)
	if c.lookupTTL > 0 {
		if data, err := c.cache.Get(ctx, key); err == nil {
			var cached []models.DirectoryEntry
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	v, err, _ := c.lookups.Do(key, func() (any, error) {
		return c.fetchDirectory(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	entries := v.([]models.DirectoryEntry)

	if c.lookupTTL > 0 && len(entries) > 0 {
		if payload, err := json.Marshal(entries); err == nil {
			if err := c.cache.Set(ctx, key, payload, c.lookupTTL); err != nil {
				c.logger.Debug("lookup cache write failed", slog.Any("error", err))
			}
		}
	}
	return entries, nil
}

func (c *RecordsClient) fetchDirectory(ctx context.Context, req models.LookupRequest) ([]models.DirectoryEntry, error) {
	const op = "repo.Lookup"
	var endpoint string
	switch req.Directory {
	case models.DirectoryCustomers:
		endpoint = c.paths.Customers
	case models.DirectoryDevices:
		endpoint = c.paths.Devices
	default:
		return nil, fmt.Errorf("%s: unknown directory %q", op, req.Directory)
	}

	payload := lookupPayload{TenantID: req.TenantID, Query: req.Query, Limit: req.Limit}
	body, err := c.doJSON(ctx, op, http.MethodPost, c.resolvePath(endpoint), req.TenantID, payload)
	if err != nil {
		return nil, err
	}

	list := detectList(body)
	c.noteShape(op, list)

	entries := []models.DirectoryEntry{}
	switch req.Directory {
	case models.DirectoryCustomers:
		wires, err := decodeItems[customerWire](list.items, c.skipItem(op))
		if err != nil {
			c.logger.Warn("customer lookup items not decodable", slog.Any("error", err))
			return entries, nil
		}
		for i := range wires {
			entries = append(entries, models.DirectoryEntry{Customer: wires[i].toModel()})
		}
	case models.DirectoryDevices:
		wires, err := decodeItems[deviceWire](list.items, c.skipItem(op))
		if err != nil {
			c.logger.Warn("device lookup items not decodable", slog.Any("error", err))
			return entries, nil
		}
		for i := range wires {
			entries = append(entries, models.DirectoryEntry{Device: wires[i].toModel()})
		}
	}
	return entries, nil
}

// ForgetLookup drops the cached result of req so the next Lookup goes upstream.
func (c *RecordsClient) ForgetLookup(ctx context.Context, req models.LookupRequest) error {
	if c == nil || c.cache == nil {
		return nil
	}
	if err := c.cache.Del(ctx, lookupCacheKey(normalizeLookup(req))); err != nil {
		return fmt.Errorf("repo.ForgetLookup: %w", err)
	}
	return nil
}

func normalizeLookup(req models.LookupRequest) models.LookupRequest {
	if req.Limit <= 0 {
		req.Limit = defaultLookupLimit
	}
	req.Query = strings.TrimSpace(req.Query)
	return req
}

func lookupCacheKey(req models.LookupRequest) string {
	return fmt.Sprintf("repairdesk:lookup:%s:%s:%d:%s", req.TenantID, req.Directory, req.Limit, strings.ToLower(req.Query))
}
