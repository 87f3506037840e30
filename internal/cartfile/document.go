// Package cartfile loads customers, products, carts and stock seeds from a
// YAML document and serves them through the checkout lookup ports.
package cartfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/checkout-cost/internal/pricing"
)

// Document is the YAML layout of a cart file.
type Document struct {
	Customers []CustomerDoc    `yaml:"customers" validate:"unique=ID,dive"`
	Products  []ProductDoc     `yaml:"products" validate:"unique=ID,dive"`
	Carts     []CartDoc        `yaml:"carts" validate:"unique=ID,dive"`
	Stock     map[string]int64 `yaml:"stock" validate:"dive,keys,required,endkeys,gte=0"`
}

// CustomerDoc is a customer entry. Region and tier may be omitted; the
// calculator reports them as unidentified.
type CustomerDoc struct {
	ID     string `yaml:"id" validate:"required"`
	Name   string `yaml:"name"`
	Region string `yaml:"region" validate:"omitempty,oneof=SOUTHEAST SOUTH NORTHEAST CENTER_WEST NORTH"`
	Tier   string `yaml:"tier" validate:"omitempty,oneof=BRONZE SILVER GOLD"`
}

// ProductDoc is a catalog entry. Decimals are quoted strings.
type ProductDoc struct {
	ID       string `yaml:"id" validate:"required"`
	Name     string `yaml:"name"`
	Price    string `yaml:"price" validate:"omitempty,numeric"`
	Weight   string `yaml:"weight" validate:"required,numeric,excludes=-"`
	Length   string `yaml:"length" validate:"required,numeric,excludes=-"`
	Width    string `yaml:"width" validate:"required,numeric,excludes=-"`
	Height   string `yaml:"height" validate:"required,numeric,excludes=-"`
	Fragile  bool   `yaml:"fragile"`
	Category string `yaml:"category" validate:"required,oneof=CLOTHING BOOK FURNITURE FOOD ELECTRONICS"`
}

// CartDoc is a cart owned by one customer.
type CartDoc struct {
	ID       string    `yaml:"id" validate:"required"`
	Customer string    `yaml:"customer" validate:"required"`
	Items    []ItemDoc `yaml:"items" validate:"dive"`
}

// ItemDoc references a product by id.
type ItemDoc struct {
	Product  string `yaml:"product" validate:"required"`
	Quantity int64  `yaml:"quantity"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads and parses the document at path.
func Load(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cartfile: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes, validates and resolves a document.
func Parse(raw []byte) (*Directory, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cartfile: decode: %w", err)
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}
	return resolve(doc)
}

func validateDocument(doc Document) error {
	err := validate.Struct(doc)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("cartfile: validate: %w", err)
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("cartfile: %s fails %s", trimNamespace(fe.Namespace()), describe(fe)))
	}
	return errors.Join(errs...)
}

func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func resolve(doc Document) (*Directory, error) {
	dir := &Directory{
		customers: make(map[string]pricing.Customer, len(doc.Customers)),
		carts:     make(map[string]pricing.Cart, len(doc.Carts)),
		stock:     make(map[string]int64, len(doc.Stock)),
	}
	for _, c := range doc.Customers {
		dir.customers[c.ID] = pricing.Customer{
			ID:     c.ID,
			Name:   c.Name,
			Region: pricing.Region(c.Region),
			Tier:   pricing.Tier(c.Tier),
		}
	}

	var errs []error
	products := make(map[string]pricing.Product, len(doc.Products))
	for _, p := range doc.Products {
		product, err := p.toProduct()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		products[p.ID] = product
	}

	for _, c := range doc.Carts {
		if _, ok := dir.customers[c.Customer]; !ok {
			errs = append(errs, fmt.Errorf("cartfile: cart %s references unknown customer %s", c.ID, c.Customer))
		}
		cart := pricing.Cart{ID: c.ID, CustomerID: c.Customer}
		if c.Items != nil {
			cart.Items = make([]pricing.LineItem, 0, len(c.Items))
		}
		for i, item := range c.Items {
			product, ok := products[item.Product]
			if !ok {
				errs = append(errs, fmt.Errorf("cartfile: cart %s item %d references unknown product %s", c.ID, i, item.Product))
				continue
			}
			cart.Items = append(cart.Items, pricing.LineItem{Product: product, Quantity: item.Quantity})
		}
		dir.carts[c.ID] = cart
	}

	for id, qty := range doc.Stock {
		if _, ok := products[id]; !ok {
			errs = append(errs, fmt.Errorf("cartfile: stock references unknown product %s", id))
			continue
		}
		dir.stock[id] = qty
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return dir, nil
}

func (p ProductDoc) toProduct() (pricing.Product, error) {
	out := pricing.Product{
		ID:       p.ID,
		Name:     p.Name,
		Fragile:  p.Fragile,
		Category: pricing.Category(p.Category),
	}
	if strings.TrimSpace(p.Price) != "" {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return pricing.Product{}, fmt.Errorf("cartfile: product %s price: %w", p.ID, err)
		}
		out.Price = &price
	}
	fields := []struct {
		name  string
		raw   string
		value *decimal.Decimal
	}{
		{"weight", p.Weight, &out.Weight},
		{"length", p.Length, &out.Length},
		{"width", p.Width, &out.Width},
		{"height", p.Height, &out.Height},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return pricing.Product{}, fmt.Errorf("cartfile: product %s %s: %w", p.ID, f.name, err)
		}
		*f.value = v
	}
	return out, nil
}
