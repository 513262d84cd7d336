package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/repairdesk/repairdesk-search/internal/cache"
	"github.com/repairdesk/repairdesk-search/internal/models"
	"github.com/repairdesk/repairdesk-search/internal/utils"
)

// ErrNotFound is returned when the record service answers 404.
var ErrNotFound = errors.New("not found")

// Paths are the record service endpoints, relative to the base URL.
type Paths struct {
	Tickets     string
	Purchases   string
	Diagnostics string
	Customers   string
	Devices     string
}

// DefaultPaths matches the record service's v1 routes.
func DefaultPaths() Paths {
	return Paths{
		Tickets:     "/api/v1/tickets/search",
		Purchases:   "/api/v1/purchases/search",
		Diagnostics: "/api/v1/diagnostics",
		Customers:   "/api/v1/customers/lookup",
		Devices:     "/api/v1/devices/lookup",
	}
}

// ClientConfig holds connection settings for RecordsClient.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	Paths     Paths
	Timeout   time.Duration
	LookupTTL time.Duration
	// Location interprets timestamps the service sends without a zone.
	Location *time.Location
}

// RecordsClient wraps the record and directory service HTTP API.
type RecordsClient struct {
	baseURL    string
	apiKey     string
	paths      Paths
	loc        *time.Location
	httpClient *http.Client
	logger     *slog.Logger

	cache     cache.Provider
	lookupTTL time.Duration
	lookups   singleflight.Group
}

// NewRecordsClient constructs a client targeting the configured record service.
func NewRecordsClient(cfg ClientConfig, cacheProvider cache.Provider, logger *slog.Logger) *RecordsClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &RecordsClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		paths:      withDefaultPaths(cfg.Paths),
		loc:        cfg.Location,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		cache:      cacheProvider,
		lookupTTL:  cfg.LookupTTL,
	}
}

func withDefaultPaths(p Paths) Paths {
	def := DefaultPaths()
	if p.Tickets == "" {
		p.Tickets = def.Tickets
	}
	if p.Purchases == "" {
		p.Purchases = def.Purchases
	}
	if p.Diagnostics == "" {
		p.Diagnostics = def.Diagnostics
	}
	if p.Customers == "" {
		p.Customers = def.Customers
	}
	if p.Devices == "" {
		p.Devices = def.Devices
	}
	return p
}

// SearchRecords fetches one page of tickets or purchases created inside
// [req.From, req.To]. An unrecognised payload yields no records and a warning.
func (c *RecordsClient) SearchRecords(ctx context.Context, req models.SearchRequest) ([]models.Record, error) {
	const op = "repo.SearchRecords"
	if err := c.ready(op); err != nil {
		return nil, err
	}

	endpoint := c.paths.Tickets
	if req.Kind == models.KindPurchase {
		endpoint = c.paths.Purchases
	}

	payload := searchPayload{
		TenantID:       req.TenantID,
		FromDate:       req.From.Format(wireTimeLayout),
		ToDate:         req.To.Format(wireTimeLayout),
		Page:           req.Page,
		PageSize:       req.PageSize,
		SortBy:         req.SortBy,
		SortDescending: req.SortDescending,
	}

	body, err := c.doJSON(ctx, op, http.MethodPost, c.resolvePath(endpoint), req.TenantID, payload)
	if err != nil {
		return nil, err
	}

	list := detectList(body)
	c.noteShape(op, list)
	if list.page != nil && list.page.truncated(req.Page) {
		c.logger.Warn("record window truncated to first page",
			slog.String("kind", string(req.Kind)),
			slog.Int("page_size", req.PageSize),
			slog.Int("total_count", list.page.TotalCount),
			slog.Int("total_pages", list.page.TotalPages),
		)
	}

	wires, err := decodeItems[recordWire](list.items, c.skipItem(op))
	if err != nil {
		c.logger.Warn("record payload items not decodable", slog.String("op", op), slog.Any("error", err))
		return []models.Record{}, nil
	}

	records := make([]models.Record, 0, len(wires))
	for _, w := range wires {
		records = append(records, w.toModel(req.Kind, c.loc))
	}
	return records, nil
}

// wireTimeLayout keeps milliseconds so end-of-day bounds reach 23:59:59.999.
const wireTimeLayout = "2006-01-02T15:04:05.000Z07:00"

type searchPayload struct {
	TenantID       string `json:"tenantId"`
	FromDate       string `json:"fromDate"`
	ToDate         string `json:"toDate"`
	Page           int    `json:"page"`
	PageSize       int    `json:"pageSize"`
	SortBy         string `json:"sortBy,omitempty"`
	SortDescending bool   `json:"sortDescending"`
}

func (c *RecordsClient) ready(op string) error {
	if c == nil {
		return utils.NewAppError(op, utils.KindTransport, "record service client not initialised", nil)
	}
	if c.baseURL == "" {
		return utils.NewAppError(op, utils.KindTransport, "record service base URL not configured", nil)
	}
	return nil
}

func (c *RecordsClient) skipItem(op string) func(int, error) {
	return func(index int, err error) {
		c.logger.Warn("skipping undecodable list element", slog.String("op", op), slog.Int("index", index), slog.Any("error", err))
	}
}

func (c *RecordsClient) noteShape(op string, list listPayload) {
	if list.shape == shapeUnknown {
		c.logger.Warn("unrecognised list payload shape", slog.String("op", op))
	}
	observeShape(list.shape)
}

func (c *RecordsClient) resolvePath(p string) string {
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

// doJSON sends payload (nil for no body) and returns the raw response body.
// 404 maps to ErrNotFound; any other non-2xx status is a KindStatus error.
func (c *RecordsClient) doJSON(ctx context.Context, op, method, endpoint, tenantID string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal payload: %w", op, err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, utils.NewAppError(op, utils.KindTransport, "build request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.NewAppError(op, utils.KindTransport, "record service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, utils.NewAppError(op, utils.KindStatus, resp.Status, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, utils.NewAppError(op, utils.KindStatus, fmt.Sprintf("record service returned %s", resp.Status), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.NewAppError(op, utils.KindTransport, "read response", err)
	}
	return data, nil
}
