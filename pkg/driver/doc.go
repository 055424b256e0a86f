// Package driver defines the uniform surface shared by all vendor API
// drivers: a common Driver interface, a static Capabilities descriptor,
// a tagged error type, query building, and batched pagination.
//
// Concrete vendor drivers live in internal/vendors and are constructed
// through the pkg/driverkit facade:
//
//	d, err := driverkit.FromEnv(ctx, driverkit.VendorStripe)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close()
//
//	records, err := d.Read(ctx, driver.NewQuery("customers").WithLimit(50))
//
// Every driver wraps one SaaS REST API and translates its pagination style
// (offset/limit, page number, or cursor token), its authentication scheme
// (bearer token, API-key header, or OAuth2 client credentials), and its
// error responses into the shared types defined here. All failures surface
// as *driver.Error values carrying a message and a structured details map;
// callers dispatch on the error kind with the Is* helpers.
package driver
