// Package directory matches advertised capability sets to device schemas.
//
// The Directory owns the registered model.Device schemas. It keeps a
// lookup cache keyed by the canonical capability set and the ordered
// union of all capability ids, both rebuilt synchronously by every
// mutating call before the call returns. Change listeners run after
// the rebuild with the new union, typically to restart transport
// discovery with a new filter.
//
// Matching is exact: a peripheral is recognized only when its advertised
// set equals a schema's capability set. Schemas without capability ids
// are stored but never matched.
package directory
