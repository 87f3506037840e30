package cartfile

import (
	"context"
	"sort"

	"github.com/noah-isme/checkout-cost/internal/common"
	"github.com/noah-isme/checkout-cost/internal/pricing"
)

// ErrCustomerNotFound is returned for customer ids missing from the document.
var ErrCustomerNotFound = common.NewAppError("customer_not_found", "customer not found", nil)

// Directory is a read-only view over a parsed document.
type Directory struct {
	customers map[string]pricing.Customer
	carts     map[string]pricing.Cart
	stock     map[string]int64
}

// Customer returns the customer with the given id.
func (d *Directory) Customer(_ context.Context, customerID string) (pricing.Customer, error) {
	c, ok := d.customers[customerID]
	if !ok {
		return pricing.Customer{}, ErrCustomerNotFound.WithDetails(customerID)
	}
	return c, nil
}

// Cart returns a copy of the cart owned by customerID. A missing cart, or one
// owned by someone else, yields nil so the calculator reports it as invalid.
func (d *Directory) Cart(_ context.Context, cartID, customerID string) (*pricing.Cart, error) {
	c, ok := d.carts[cartID]
	if !ok || c.CustomerID != customerID {
		return nil, nil
	}
	if c.Items != nil {
		c.Items = append(make([]pricing.LineItem, 0, len(c.Items)), c.Items...)
	}
	return &c, nil
}

// CartOwner returns the customer id owning cartID.
func (d *Directory) CartOwner(cartID string) (string, bool) {
	c, ok := d.carts[cartID]
	return c.CustomerID, ok
}

// CartIDs lists cart ids in lexical order.
func (d *Directory) CartIDs() []string {
	ids := make([]string, 0, len(d.carts))
	for id := range d.carts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stock returns the stock seed declared by the document.
func (d *Directory) Stock() map[string]int64 {
	out := make(map[string]int64, len(d.stock))
	for id, qty := range d.stock {
		out[id] = qty
	}
	return out
}
