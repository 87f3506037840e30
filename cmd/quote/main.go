package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/noah-isme/checkout-cost/internal/cartfile"
	"github.com/noah-isme/checkout-cost/internal/common"
	"github.com/noah-isme/checkout-cost/internal/pricing"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		file   = fs.String("file", "", "cart document (YAML)")
		cartID = fs.String("cart", "", "cart id to price")
		region = fs.String("region", "", "override the customer's region")
		tier   = fs.String("tier", "", "override the customer's tier")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*file) == "" || strings.TrimSpace(*cartID) == "" {
		fmt.Fprintln(stderr, "quote: -file and -cart are required")
		fs.Usage()
		return 2
	}

	breakdown, err := quote(context.Background(), *file, *cartID, *region, *tier)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			fmt.Fprintf(stderr, "%s: %s\n", appErr.Code, appErr.Message)
		} else {
			fmt.Fprintf(stderr, "quote: %v\n", err)
		}
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(breakdown); err != nil {
		fmt.Fprintf(stderr, "quote: encode: %v\n", err)
		return 1
	}
	return 0
}

func quote(ctx context.Context, file, cartID, region, tier string) (pricing.Breakdown, error) {
	dir, err := cartfile.Load(file)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	owner, ok := dir.CartOwner(cartID)
	if !ok {
		return pricing.Quote(nil, pricing.Region(region), pricing.Tier(tier))
	}
	customer, err := dir.Customer(ctx, owner)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	cart, err := dir.Cart(ctx, cartID, owner)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	if r := strings.ToUpper(strings.TrimSpace(region)); r != "" {
		customer.Region = pricing.Region(r)
	}
	if t := strings.ToUpper(strings.TrimSpace(tier)); t != "" {
		customer.Tier = pricing.Tier(t)
	}
	return pricing.Quote(cart, customer.Region, customer.Tier)
}
