package domain

import "time"

// Location is a point captured from the device positioning capability.
// It is taken once at screen start and attached by value to every product
// created in that session.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Store represents a retail store known to the remote catalog.
// The uniqueness key is Name, case-sensitive, as stored remotely.
type Store struct {
	ID   string `json:"_id,omitempty" csv:"-"`
	Name string `json:"name" csv:"name"`
}

// Product is a priced catalog entry keyed by barcode. ID and Date are
// server-assigned; local copies live only until the next list refresh.
type Product struct {
	ID       string    `json:"_id,omitempty" csv:"-"`
	Barcode  string    `json:"barcode" csv:"barcode"`
	Name     string    `json:"name" csv:"name"`
	Price    float64   `json:"price" csv:"price"`
	Store    string    `json:"store" csv:"store"`
	Location *Location `json:"location,omitempty" csv:"-"`
	Date     time.Time `json:"-" csv:"date"`

	// RawDate carries the server date string verbatim; the server encodes
	// it in more than one format so it is parsed leniently after decode.
	RawDate string `json:"date,omitempty" csv:"-"`
}

// ProductDraft is the form state the operator edits before submission.
// Price stays a string until validation so partial input is never lost.
type ProductDraft struct {
	Barcode string `json:"barcode"`
	Name    string `json:"name"`
	Price   string `json:"price"`
	Store   string `json:"store"`
}

// Empty reports whether the draft holds no operator input at all.
func (d ProductDraft) Empty() bool {
	return d.Barcode == "" && d.Name == "" && d.Price == "" && d.Store == ""
}
