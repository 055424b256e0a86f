// Package driverkit is the entry point of the library: it constructs vendor
// drivers by name and hides the per-vendor packages behind the shared
// driver.Driver interface.
package driverkit

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/driverkit/internal/vendors/amplitude"
	"github.com/fivetwenty-io/driverkit/internal/vendors/apify"
	"github.com/fivetwenty-io/driverkit/internal/vendors/fidoo"
	"github.com/fivetwenty-io/driverkit/internal/vendors/mpohoda"
	"github.com/fivetwenty-io/driverkit/internal/vendors/odoo"
	"github.com/fivetwenty-io/driverkit/internal/vendors/posthog"
	"github.com/fivetwenty-io/driverkit/internal/vendors/stripe"
	"github.com/fivetwenty-io/driverkit/pkg/driver"
)

// Vendor identifies one supported SaaS API.
type Vendor string

// Supported vendors.
const (
	VendorStripe    Vendor = "stripe"
	VendorApify     Vendor = "apify"
	VendorFidoo     Vendor = "fidoo"
	VendorMpohoda   Vendor = "mpohoda"
	VendorOdoo      Vendor = "odoo"
	VendorPostHog   Vendor = "posthog"
	VendorAmplitude Vendor = "amplitude"
)

type constructors struct {
	fromConfig func(*driver.Config) (driver.Driver, error)
	fromEnv    func(*driver.Config) (driver.Driver, error)
}

var registry = map[Vendor]constructors{
	VendorStripe: {
		fromConfig: func(cfg *driver.Config) (driver.Driver, error) { return stripe.New(cfg) },
		fromEnv:    func(cfg *driver.Config) (driver.Driver, error) { return stripe.FromEnv(cfg) },
	},
	VendorApify: {
		fromConfig: func(cfg *driver.Config) (driver.Driver, error) { return apify.New(cfg) },
		fromEnv:    func(cfg *driver.Config) (driver.Driver, error) { return apify.FromEnv(cfg) },
	},
	VendorFidoo: {
		fromConfig: func(cfg *driver.Config) (driver.Driver, error) { return fidoo.New(cfg) },
		fromEnv:    func(cfg *driver.Config) (driver.Driver, error) { return fidoo.FromEnv(cfg) },
	},
	VendorMpohoda: {
		fromConfig: func(cfg *driver.Config) (driver.Driver, error) { return mpohoda.New(cfg) },
		fromEnv:    func(cfg *driver.Config) (driver.Driver, error) { return mpohoda.FromEnv(cfg) },
	},
	VendorOdoo: {
		fromConfig: func(cfg *driver.Config) (driver.Driver, error) { return odoo.New(cfg) },
		fromEnv:    func(cfg *driver.Config) (driver.Driver, error) { return odoo.FromEnv(cfg) },
	},
	VendorPostHog: {
		fromConfig: func(cfg *driver.Config) (driver.Driver, error) { return posthog.New(cfg) },
		fromEnv:    func(cfg *driver.Config) (driver.Driver, error) { return posthog.FromEnv(cfg) },
	},
	VendorAmplitude: {
		fromConfig: func(cfg *driver.Config) (driver.Driver, error) { return amplitude.New(cfg) },
		fromEnv:    func(cfg *driver.Config) (driver.Driver, error) { return amplitude.FromEnv(cfg) },
	},
}

// Vendors returns the names of all supported vendors.
func Vendors() []Vendor {
	return []Vendor{
		VendorStripe,
		VendorApify,
		VendorFidoo,
		VendorMpohoda,
		VendorOdoo,
		VendorPostHog,
		VendorAmplitude,
	}
}

// ParseVendor resolves a vendor name.
func ParseVendor(name string) (Vendor, error) {
	vendor := Vendor(name)
	if _, ok := registry[vendor]; !ok {
		return "", fmt.Errorf("%w: %q", driver.ErrUnknownVendor, name)
	}

	return vendor, nil
}

// New creates a driver for the vendor from explicit configuration.
func New(ctx context.Context, vendor Vendor, cfg *driver.Config) (driver.Driver, error) {
	entry, ok := registry[vendor]
	if !ok {
		return nil, fmt.Errorf("%w: %q", driver.ErrUnknownVendor, vendor)
	}

	d, err := entry.fromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return validated(ctx, d, cfg)
}

// FromEnv creates a driver for the vendor from its environment variables.
func FromEnv(ctx context.Context, vendor Vendor, cfg *driver.Config) (driver.Driver, error) {
	entry, ok := registry[vendor]
	if !ok {
		return nil, fmt.Errorf("%w: %q", driver.ErrUnknownVendor, vendor)
	}

	d, err := entry.fromEnv(cfg)
	if err != nil {
		return nil, err
	}

	return validated(ctx, d, cfg)
}

func validated(ctx context.Context, d driver.Driver, cfg *driver.Config) (driver.Driver, error) {
	if cfg == nil || !cfg.ValidateOnInit {
		return d, nil
	}

	if err := probe(ctx, d); err != nil {
		_ = d.Close()

		return nil, fmt.Errorf("validating %s connection: %w", d.Name(), err)
	}

	return d, nil
}

// probeObjects names a cheap collection per vendor for the construction-time
// connection check.
var probeObjects = map[string]string{
	"stripe":    "customers",
	"apify":     "actors",
	"fidoo":     "users",
	"mpohoda":   "Countries",
	"posthog":   "dashboards",
	"amplitude": "annotations",
}

// probe performs one authenticated request so that bad credentials surface
// at construction instead of on the first real call.
func probe(ctx context.Context, d driver.Driver) error {
	object, ok := probeObjects[d.Name()]
	if !ok {
		// Odoo model discovery is itself an authenticated call.
		_, err := d.ListObjects(ctx)

		return err
	}

	_, err := d.Read(ctx, driver.NewQuery(object).WithLimit(1))
	if err != nil && driver.IsNotImplemented(err) {
		return nil
	}

	return err
}

// NewStripe creates a Stripe driver.
func NewStripe(cfg *driver.Config) (*stripe.Driver, error) { return stripe.New(cfg) }

// NewApify creates an Apify driver.
func NewApify(cfg *driver.Config) (*apify.Driver, error) { return apify.New(cfg) }

// NewFidoo creates a Fidoo driver.
func NewFidoo(cfg *driver.Config) (*fidoo.Driver, error) { return fidoo.New(cfg) }

// NewMpohoda creates an mPOHODA driver.
func NewMpohoda(cfg *driver.Config) (*mpohoda.Driver, error) { return mpohoda.New(cfg) }

// NewOdoo creates an Odoo driver.
func NewOdoo(cfg *driver.Config) (*odoo.Driver, error) { return odoo.New(cfg) }

// NewPostHog creates a PostHog driver.
func NewPostHog(cfg *driver.Config) (*posthog.Driver, error) { return posthog.New(cfg) }

// NewAmplitude creates an Amplitude driver.
func NewAmplitude(cfg *driver.Config) (*amplitude.Driver, error) { return amplitude.New(cfg) }
