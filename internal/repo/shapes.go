package repo

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/repairdesk/repairdesk-search/internal/metrics"
	"github.com/repairdesk/repairdesk-search/internal/models"
	"github.com/repairdesk/repairdesk-search/internal/utils"
)

const (
	shapeArray   = "array"
	shapeData    = "data"
	shapeItems   = "items"
	shapeUnknown = "unknown"
)

// pageInfo is the pagination metadata carried by the data envelope.
type pageInfo struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"pageSize"`
	TotalCount  int  `json:"totalCount"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
}

func (p *pageInfo) truncated(requested int) bool {
	if p.HasNextPage {
		return true
	}
	current := p.Page
	if current <= 0 {
		current = requested
	}
	return p.TotalPages > current
}

type listPayload struct {
	shape string
	items json.RawMessage
	page  *pageInfo
}

type shapeDetector struct {
	name   string
	detect func(body []byte) (listPayload, bool)
}

// listShapes is checked in order; the first match wins.
var listShapes = []shapeDetector{
	{name: shapeArray, detect: detectArray},
	{name: shapeData, detect: detectEnvelope("data", true)},
	{name: shapeItems, detect: detectEnvelope("items", false)},
}

func detectList(body []byte) listPayload {
	trimmed := bytes.TrimSpace(body)
	for _, d := range listShapes {
		if list, ok := d.detect(trimmed); ok {
			list.shape = d.name
			return list
		}
	}
	return listPayload{shape: shapeUnknown}
}

func detectArray(body []byte) (listPayload, bool) {
	if len(body) == 0 || body[0] != '[' || !json.Valid(body) {
		return listPayload{}, false
	}
	return listPayload{items: body}, true
}

func detectEnvelope(field string, paged bool) func([]byte) (listPayload, bool) {
	return func(body []byte) (listPayload, bool) {
		if len(body) == 0 || body[0] != '{' {
			return listPayload{}, false
		}
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return listPayload{}, false
		}
		items, ok := envelope[field]
		items = bytes.TrimSpace(items)
		if !ok || len(items) == 0 || items[0] != '[' {
			return listPayload{}, false
		}
		list := listPayload{items: items}
		if paged {
			var page pageInfo
			if err := json.Unmarshal(body, &page); err == nil {
				list.page = &page
			}
		}
		return list, true
	}
}

// decodeItems decodes each list element on its own. Elements that fail to
// decode are reported to skip and left out of the result.
func decodeItems[T any](items json.RawMessage, skip func(index int, err error)) ([]T, error) {
	if len(items) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(items, &raw); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for i, elem := range raw {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			if skip != nil {
				skip(i, err)
			}
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func observeShape(shape string) {
	metrics.ObserveResponseShape(shape)
}

// flexString accepts JSON strings and numbers; the service sends numeric ids
// for older records.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("expected string or number")
	}
	*f = flexString(n.String())
	return nil
}

type customerWire struct {
	ID          flexString `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	CompanyName string     `json:"companyName"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email"`
}

func (w *customerWire) toModel() *models.Customer {
	if w == nil {
		return nil
	}
	return &models.Customer{
		ID:          string(w.ID),
		FirstName:   w.FirstName,
		LastName:    w.LastName,
		CompanyName: w.CompanyName,
		Phone:       w.Phone,
		Email:       w.Email,
	}
}

type deviceWire struct {
	ID           flexString `json:"id"`
	Brand        string     `json:"brand"`
	Model        string     `json:"model"`
	SerialNumber string     `json:"serialNumber"`
	IMEI         string     `json:"imei"`
}

func (w *deviceWire) toModel() *models.Device {
	if w == nil {
		return nil
	}
	return &models.Device{
		ID:           string(w.ID),
		Brand:        w.Brand,
		Model:        w.Model,
		SerialNumber: w.SerialNumber,
		IMEI:         w.IMEI,
	}
}

type recordWire struct {
	ID               flexString          `json:"id"`
	Code             string              `json:"code"`
	Number           string              `json:"number"`
	Status           flexString          `json:"status"`
	PaymentStatus    flexString          `json:"paymentStatus"`
	Condition        flexString          `json:"condition"`
	DeviceCondition  flexString          `json:"deviceCondition"`
	CreatedAt        string              `json:"createdAt"`
	ReceivedAt       string              `json:"receivedAt"`
	PurchaseDate     string              `json:"purchaseDate"`
	TotalAmount      decimal.NullDecimal `json:"totalAmount"`
	PaidAmount       decimal.NullDecimal `json:"paidAmount"`
	Customer         *customerWire       `json:"customer"`
	Device           *deviceWire         `json:"device"`
	DeclaredFault    string              `json:"declaredFault"`
	FaultDescription string              `json:"faultDescription"`
}

func (w recordWire) toModel(kind models.RecordKind, loc *time.Location) models.Record {
	rec := models.Record{
		ID:            string(w.ID),
		Kind:          kind,
		Code:          firstNonEmpty(w.Code, w.Number),
		Status:        string(w.Status),
		PaymentStatus: string(w.PaymentStatus),
		Condition:     firstNonEmpty(string(w.Condition), string(w.DeviceCondition)),
		Customer:      w.Customer.toModel(),
		Device:        w.Device.toModel(),
		DeclaredFault: firstNonEmpty(w.DeclaredFault, w.FaultDescription),
	}
	if w.TotalAmount.Valid {
		rec.TotalAmount = w.TotalAmount.Decimal
	}
	if w.PaidAmount.Valid {
		rec.PaidAmount = w.PaidAmount.Decimal
	}
	if t, ok := parseTimestamp(w.CreatedAt, loc); ok {
		rec.CreatedAt = t
	}
	occurred := w.ReceivedAt
	if kind == models.KindPurchase {
		occurred = firstNonEmpty(w.PurchaseDate, w.ReceivedAt)
	}
	if t, ok := parseTimestamp(occurred, loc); ok {
		rec.ReceivedAt = &t
	}
	return rec
}

var zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	utils.DayLayout,
}

// parseTimestamp reads zoned timestamps as-is and naive ones in loc.
func parseTimestamp(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms).In(loc), true
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
