package models

import "time"

// SearchRequest is the bounded window fetch sent to the record service.
type SearchRequest struct {
	TenantID       string
	Kind           RecordKind
	From           time.Time
	To             time.Time
	Page           int
	PageSize       int
	SortBy         string
	SortDescending bool
}

// Directory names a lookup target of the directory service.
type Directory string

const (
	DirectoryCustomers Directory = "customers"
	DirectoryDevices   Directory = "devices"
)

// LookupRequest is a free-text directory query.
type LookupRequest struct {
	TenantID  string
	Directory Directory
	Query     string
	Limit     int
}

// DirectoryEntry is a typeahead candidate. Exactly one of Customer or Device is set.
type DirectoryEntry struct {
	Customer *Customer
	Device   *Device
}

// Label renders the entry for a suggestion list.
func (e DirectoryEntry) Label() string {
	switch {
	case e.Customer != nil:
		label := e.Customer.DisplayName()
		if e.Customer.Phone != "" {
			label += " · " + e.Customer.Phone
		}
		return label
	case e.Device != nil:
		label := e.Device.DisplayName()
		if e.Device.SerialNumber != "" {
			label += " · " + e.Device.SerialNumber
		}
		return label
	default:
		return ""
	}
}
