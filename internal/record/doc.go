// Package record provides the canonical record types emitted by the
// reconciliation engine and the builders that construct them.
//
// This package contains type definitions and builders only. It imports
// nothing internal, so every other package can depend on it.
//
// Records are built in two steps: a per-kind constructor takes the common
// fields, chained With* setters fill in the rest, and Done validates that
// every field required for the kind is present. Done returns a
// *MissingFieldError naming the first absent field otherwise, or an
// *InvalidFieldError for a field holding an unusable value.
//
// Finalized records are values. Slices and maps are copied on Done so a
// builder mutated afterwards never changes a record already returned.
// Annotations and payload can only be attached through a builder.
package record
