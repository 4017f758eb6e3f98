// Package storefront defines the port interface to the merchant's external
// e-commerce storefront platform, along with the value objects exchanged
// across that boundary.
//
// The interface follows the Ports & Adapters pattern: it is defined here in
// the domain layer, and concrete implementations (Shopify) live in the
// infrastructure layer. Nothing in this package performs I/O.
package storefront
