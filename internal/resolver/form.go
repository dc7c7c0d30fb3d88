package resolver

import (
	"sync"

	"github.com/pajakoo/shoppApp/internal/domain"
)

// Form field names.
const (
	FieldBarcode = "barcode"
	FieldName    = "name"
	FieldPrice   = "price"
	FieldStore   = "store"
)

// Form is the product draft plus a record of which fields the operator has
// touched. Lookup pre-fills only land on untouched fields; operator edits
// always win. All fields stay editable after a pre-fill.
type Form struct {
	mu      sync.Mutex
	draft   domain.ProductDraft
	touched map[string]bool
}

func NewForm() *Form {
	return &Form{touched: make(map[string]bool)}
}

// Set records an operator edit.
func (f *Form) Set(field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch field {
	case FieldBarcode:
		f.draft.Barcode = value
	case FieldName:
		f.draft.Name = value
	case FieldPrice:
		f.draft.Price = value
	case FieldStore:
		f.draft.Store = value
	default:
		return
	}
	f.touched[field] = true
}

// ApplyScan overwrites the barcode from a new physical scan. The scan also
// un-touches the barcode so a later scan may replace it again, but leaves
// operator edits to the other fields intact.
func (f *Form) ApplyScan(code string) {
	f.mu.Lock()
	f.draft.Barcode = code
	delete(f.touched, FieldBarcode)
	f.mu.Unlock()
}

// Prefill applies a lookup result to the untouched fields only.
func (f *Form) Prefill(p *domain.Product, withPrice bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.touched[FieldName] {
		f.draft.Name = p.Name
	}
	if withPrice {
		if !f.touched[FieldPrice] && p.Price > 0 {
			f.draft.Price = formatPrice(p.Price)
		}
		if !f.touched[FieldStore] && p.Store != "" {
			f.draft.Store = p.Store
		}
	}
}

// Snapshot returns a copy of the current draft.
func (f *Form) Snapshot() domain.ProductDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Clear resets the draft and all touched marks after a successful submit.
func (f *Form) Clear() {
	f.mu.Lock()
	f.draft = domain.ProductDraft{}
	f.touched = make(map[string]bool)
	f.mu.Unlock()
}
