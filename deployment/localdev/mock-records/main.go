// Command mock-records serves a fake record and directory service for local
// development of the search console.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type customer struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	CompanyName string `json:"companyName,omitempty"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
}

type device struct {
	ID           string `json:"id"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	SerialNumber string `json:"serialNumber"`
	IMEI         string `json:"imei,omitempty"`
}

type record struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus,omitempty"`
	Condition     string          `json:"condition,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	ReceivedAt    *time.Time      `json:"receivedAt,omitempty"`
	PurchaseDate  *time.Time      `json:"purchaseDate,omitempty"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	Customer      *customer       `json:"customer,omitempty"`
	Device        *device         `json:"device,omitempty"`
	DeclaredFault string          `json:"declaredFault,omitempty"`
}

type searchRequest struct {
	TenantID       string `json:"tenantId"`
	FromDate       string `json:"fromDate"`
	ToDate         string `json:"toDate"`
	Page           int    `json:"page"`
	PageSize       int    `json:"pageSize"`
	SortBy         string `json:"sortBy"`
	SortDescending bool   `json:"sortDescending"`
}

type lookupRequest struct {
	TenantID string `json:"tenantId"`
	Query    string `json:"query"`
	Limit    int    `json:"limit"`
}

// store is the in-memory dataset.
type store struct {
	tickets   []record
	purchases []record
	customers []customer
	devices   []device

	mu          sync.Mutex
	diagnostics map[string]map[string]any

	shape   string
	counter atomic.Uint64
	latency time.Duration
}

var (
	firstNames = []string{"Mario", "Giulia", "Luca", "Francesca", "Marco", "Chiara", "Andrea", "Sara"}
	lastNames  = []string{"Rossi", "Bianchi", "Russo", "Ferrari", "Esposito", "Romano", "Colombo", "Ricci"}
	brands     = map[string][]string{
		"Apple":   {"iPhone 11", "iPhone 12", "iPhone 13", "iPad Air"},
		"Samsung": {"Galaxy S21", "Galaxy A52", "Galaxy Tab S7"},
		"Xiaomi":  {"Redmi Note 10", "Mi 11"},
	}
	statuses   = []string{"RECEIVED", "DIAGNOSING", "WAITING_PARTS", "IN_REPAIR", "READY", "DELIVERED", "CANCELLED"}
	payments   = []string{"PAID", "UNPAID", "PARTIAL", ""}
	conditions = []string{"GOOD", "FAIR", "BROKEN", ""}
	faults     = []string{"schermo rotto", "non si accende", "batteria gonfia", "connettore di ricarica", "audio assente", "caduto in acqua"}
)

func newStore(seed int64, now time.Time, shape string) *store {
	rng := rand.New(rand.NewSource(seed))
	s := &store{diagnostics: make(map[string]map[string]any), shape: shape}

	for i := 0; i < 40; i++ {
		c := customer{
			ID:        fmt.Sprintf("c%03d", i+1),
			FirstName: firstNames[rng.Intn(len(firstNames))],
			LastName:  lastNames[rng.Intn(len(lastNames))],
			Phone:     fmt.Sprintf("3%02d %07d", rng.Intn(100), rng.Intn(10_000_000)),
		}
		if i%9 == 0 {
			c.CompanyName = c.LastName + " Srl"
		}
		s.customers = append(s.customers, c)
	}

	brandNames := make([]string, 0, len(brands))
	for b := range brands {
		brandNames = append(brandNames, b)
	}
	sort.Strings(brandNames)
	for i := 0; i < 60; i++ {
		brand := brandNames[rng.Intn(len(brandNames))]
		models := brands[brand]
		s.devices = append(s.devices, device{
			ID:           fmt.Sprintf("d%03d", i+1),
			Brand:        brand,
			Model:        models[rng.Intn(len(models))],
			SerialNumber: strings.ToUpper(uuid.NewString()[:12]),
		})
	}

	start := now.AddDate(-4, 0, 0)
	span := now.Sub(start)
	for i := 0; i < 900; i++ {
		created := start.Add(time.Duration(rng.Int63n(int64(span)))).Truncate(time.Minute)
		received := created.Add(time.Duration(rng.Intn(48)) * time.Hour)
		total := decimal.NewFromInt(int64(30 + rng.Intn(400)))
		paid := decimal.Zero
		payment := payments[rng.Intn(len(payments))]
		switch payment {
		case "PAID":
			paid = total
		case "PARTIAL":
			paid = total.Div(decimal.NewFromInt(2)).Round(2)
		}
		c := s.customers[rng.Intn(len(s.customers))]
		d := s.devices[rng.Intn(len(s.devices))]
		s.tickets = append(s.tickets, record{
			ID:            uuid.NewString(),
			Code:          fmt.Sprintf("T-%05d", i+1),
			Status:        statuses[rng.Intn(len(statuses))],
			PaymentStatus: payment,
			Condition:     conditions[rng.Intn(len(conditions))],
			CreatedAt:     created,
			ReceivedAt:    &received,
			TotalAmount:   total,
			PaidAmount:    paid,
			Customer:      &c,
			Device:        &d,
			DeclaredFault: faults[rng.Intn(len(faults))],
		})
	}
	for i := 0; i < 300; i++ {
		created := start.Add(time.Duration(rng.Int63n(int64(span)))).Truncate(time.Minute)
		purchased := created.Add(-time.Duration(rng.Intn(72)) * time.Hour)
		total := decimal.NewFromInt(int64(50 + rng.Intn(900)))
		c := s.customers[rng.Intn(len(s.customers))]
		d := s.devices[rng.Intn(len(s.devices))]
		s.purchases = append(s.purchases, record{
			ID:            uuid.NewString(),
			Code:          fmt.Sprintf("A-%05d", i+1),
			Status:        "COMPLETED",
			PaymentStatus: payments[rng.Intn(len(payments)-1)],
			Condition:     conditions[rng.Intn(len(conditions))],
			CreatedAt:     created,
			PurchaseDate:  &purchased,
			TotalAmount:   total,
			PaidAmount:    total,
			Customer:      &c,
			Device:        &d,
		})
	}
	return s
}

func main() {
	addr := flag.String("addr", ":8085", "Listen address")
	shape := flag.String("shape", "rotate", "List payload shape: array, data, items or rotate")
	latency := flag.Duration("latency", 0, "Artificial delay added to directory lookups")
	seed := flag.Int64("seed", 42, "Dataset seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With(slog.String("component", "records-mock"))
	s := newStore(*seed, time.Now(), *shape)
	s.latency = *latency

	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(logger, s.routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("listening", slog.String("addr", *addr), slog.Int("tickets", len(s.tickets)), slog.Int("purchases", len(s.purchases)))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func (s *store) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/v1/tickets/search", s.handleSearch(func() []record { return s.tickets }))
	mux.HandleFunc("/api/v1/purchases/search", s.handleSearch(func() []record { return s.purchases }))
	mux.HandleFunc("/api/v1/customers/lookup", s.handleCustomers)
	mux.HandleFunc("/api/v1/devices/lookup", s.handleDevices)
	mux.HandleFunc("/api/v1/diagnostics/", s.handleDiagnostics)
	return mux
}

func (s *store) handleSearch(source func() []record) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		from, err1 := time.Parse(time.RFC3339, req.FromDate)
		to, err2 := time.Parse(time.RFC3339, req.ToDate)
		if err1 != nil || err2 != nil {
			http.Error(w, "fromDate and toDate must be RFC3339", http.StatusBadRequest)
			return
		}

		var matched []record
		for _, rec := range source() {
			if !rec.CreatedAt.Before(from) && !rec.CreatedAt.After(to) {
				matched = append(matched, rec)
			}
		}
		sort.SliceStable(matched, func(i, j int) bool {
			if req.SortDescending {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		})

		page, size := req.Page, req.PageSize
		if page <= 0 {
			page = 1
		}
		if size <= 0 {
			size = 100
		}
		total := len(matched)
		lo := min((page-1)*size, total)
		hi := min(lo+size, total)
		pages := (total + size - 1) / size

		s.writeList(w, matched[lo:hi], map[string]any{
			"page":        page,
			"pageSize":    size,
			"totalCount":  total,
			"totalPages":  pages,
			"hasNextPage": page < pages,
		})
	}
}

// writeList encodes items in the configured shape; rotate cycles through all three.
func (s *store) writeList(w http.ResponseWriter, items any, pagination map[string]any) {
	shape := s.shape
	if shape == "rotate" {
		shape = []string{"array", "data", "items"}[s.counter.Add(1)%3]
	}
	switch shape {
	case "array":
		writeJSON(w, items)
	case "items":
		writeJSON(w, map[string]any{"items": items})
	default:
		body := map[string]any{"data": items}
		for k, v := range pagination {
			body[k] = v
		}
		writeJSON(w, body)
	}
}

func (s *store) handleCustomers(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeLookup(w, r)
	if !ok {
		return
	}
	q := strings.ToLower(req.Query)
	var out []customer
	for _, c := range s.customers {
		hay := strings.ToLower(strings.Join([]string{c.FirstName, c.LastName, c.CompanyName, c.Phone}, " "))
		if strings.Contains(hay, q) {
			out = append(out, c)
			if len(out) == req.Limit {
				break
			}
		}
	}
	s.writeList(w, out, nil)
}

func (s *store) handleDevices(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeLookup(w, r)
	if !ok {
		return
	}
	q := strings.ToLower(req.Query)
	var out []device
	for _, d := range s.devices {
		hay := strings.ToLower(strings.Join([]string{d.Brand, d.Model, d.SerialNumber}, " "))
		if strings.Contains(hay, q) {
			out = append(out, d)
			if len(out) == req.Limit {
				break
			}
		}
	}
	s.writeList(w, out, nil)
}

func (s *store) decodeLookup(w http.ResponseWriter, r *http.Request) (lookupRequest, bool) {
	if !enforcePost(w, r) {
		return lookupRequest{}, false
	}
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return lookupRequest{}, false
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if s.latency > 0 {
		// shorter queries answer slower, so typeahead races are reproducible
		delay := s.latency * time.Duration(max(1, 6-len(req.Query)))
		time.Sleep(delay)
	}
	return req, true
}

func (s *store) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/diagnostics/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		rec, ok := s.diagnostics[id]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"attributes": rec})
	case http.MethodPut:
		var body struct {
			SchemaVersion int            `json:"schemaVersion"`
			Attributes    map[string]any `json:"attributes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Attributes == nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.diagnostics[id] = body.Attributes
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("encode error", slog.Any("error", err))
	}
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", r.Header.Get("X-Request-ID")),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
