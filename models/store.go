package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrProductNotFound is returned when an id or name resolves to nothing.
var ErrProductNotFound = errors.New("product not found")

// EditField names a product field the edit-command path may mutate.
type EditField string

const (
	FieldName          EditField = "name"
	FieldDescription   EditField = "description"
	FieldQuantity      EditField = "quantity"
	FieldPurchasePrice EditField = "purchasePrice"
	FieldSalePrice     EditField = "salePrice"
)

// ParseEditField validates a field name coming back from the model.
func ParseEditField(s string) (EditField, error) {
	switch EditField(strings.TrimSpace(s)) {
	case FieldName:
		return FieldName, nil
	case FieldDescription:
		return FieldDescription, nil
	case FieldQuantity:
		return FieldQuantity, nil
	case FieldPurchasePrice:
		return FieldPurchasePrice, nil
	case FieldSalePrice:
		return FieldSalePrice, nil
	default:
		return "", fmt.Errorf("field %q is not editable", s)
	}
}

// Store is the ordered in-memory product collection. It is the only owner
// of product state: the batch runner mutates price fields through
// ApplyPrice and the edit-command path goes through ApplyEdit.
type Store struct {
	mu      sync.Mutex
	ordered []*Product
	byID    map[string]*Product
}

// NewStore builds an empty product store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Product)}
}

// Add validates a product, assigns an id when missing, and appends it.
func (s *Store) Add(p *Product) (string, error) {
	if err := ValidateProduct(p); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = NewProductID()
	}
	if _, exists := s.byID[p.ID]; exists {
		return "", fmt.Errorf("duplicate product id %s", p.ID)
	}

	stored := *p
	s.ordered = append(s.ordered, &stored)
	s.byID[stored.ID] = &stored
	return stored.ID, nil
}

// Get returns a copy of the product with the given id.
func (s *Store) Get(id string) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return Product{}, false
	}
	return *p, true
}

// List returns copies of all products in insertion order.
func (s *Store) List() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Product, 0, len(s.ordered))
	for _, p := range s.ordered {
		out = append(out, *p)
	}
	return out
}

// IDs returns all product ids in insertion order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.ordered))
	for _, p := range s.ordered {
		out = append(out, p.ID)
	}
	return out
}

// Len reports the number of products.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ordered)
}

// FindByName resolves a product by case-insensitive substring match
// against product names. The first match in insertion order wins.
func (s *Store) FindByName(name string) (Product, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return Product{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.ordered {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			return *p, true
		}
	}
	return Product{}, false
}

// ApplyPrice writes a successful search price into the field selected by
// kind and stamps LastUpdated. Reapplying the same price is allowed.
func (s *Store) ApplyPrice(id string, kind BatchKind, price float64, now time.Time) error {
	if err := validatePrice("competitor price", price); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	v := price
	switch kind {
	case KindCompetitor:
		p.CompetitorNewPrice = &v
	case KindUsed:
		p.CompetitorUsedPrice = &v
	default:
		return fmt.Errorf("unknown batch kind %d", kind)
	}
	t := now
	p.LastUpdated = &t
	return nil
}

// ApplyEdit mutates one editable field and stamps LastUpdated. The value
// must already be coerced to the field's type.
func (s *Store) ApplyEdit(id string, field EditField, value any, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	switch field {
	case FieldName:
		name, ok := value.(string)
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("name must be a non-empty string")
		}
		p.Name = strings.TrimSpace(name)
	case FieldDescription:
		desc, ok := value.(string)
		if !ok {
			return fmt.Errorf("description must be a string")
		}
		p.Description = desc
	case FieldQuantity:
		qty, ok := value.(int)
		if !ok || qty < 0 {
			return fmt.Errorf("quantity must be a non-negative integer")
		}
		p.Quantity = qty
	case FieldPurchasePrice, FieldSalePrice:
		price, ok := value.(float64)
		if !ok {
			return fmt.Errorf("%s must be a number", field)
		}
		if err := validatePrice(string(field), price); err != nil {
			return err
		}
		if field == FieldPurchasePrice {
			p.PurchasePrice = price
		} else {
			p.SalePrice = price
		}
	default:
		return fmt.Errorf("field %q is not editable", field)
	}

	t := now
	p.LastUpdated = &t
	return nil
}
