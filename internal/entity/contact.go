package entity

import "time"

// UnknownBusiness is stored when no name could be read from the detail panel.
const UnknownBusiness = "Unknown Business"

// Contact mirrors the `contacts` PostgreSQL table schema.
// Empty Phone, Website or Email means the field is absent and is stored as NULL.
type Contact struct {
	BusinessName string    `json:"business_name"`
	Phone        string    `json:"phone,omitempty"`
	Website      string    `json:"website,omitempty"`
	Email        string    `json:"email,omitempty"`
	SourceQuery  string    `json:"source_query"`
	ExtractedAt  time.Time `json:"extracted_at"`
}

// HasContactData reports whether at least one of phone, website or email is present.
func (c *Contact) HasContactData() bool {
	return c.Phone != "" || c.Website != "" || c.Email != ""
}

// InsertResult is the outcome of storing a single contact.
type InsertResult struct {
	Inserted  bool
	Duplicate bool
}

// BatchInsertResult counts the outcomes of a batch insert.
type BatchInsertResult struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Listing is one entry of a search result feed.
type Listing struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}
