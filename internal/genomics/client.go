// Package genomics defines the remote-service contract the caller stages
// speak against (spec.md §6) and two implementations: an HTTP client for
// the real external genomics API, and a file-backed client for tests and
// offline runs.
package genomics

import (
	"context"

	"github.com/inodb/denovo-caller/internal/pileup"
	"github.com/inodb/denovo-caller/internal/variant"
)

// VariantPage is one page of a list_variants response.
type VariantPage struct {
	Variants      []*variant.Variant
	NextPageToken string
}

// Client is the abstract remote-service contract from spec.md §6: paged
// variant search restricted to a set of callsets, and per-position read
// search for a single read group set. Both stages hold a Client by
// interface so tests can substitute FileClient for RemoteClient without
// touching stage logic.
type Client interface {
	// ListVariants returns one page of variants on reference in
	// [start, end) whose calls belong to one of callsetIDs.
	ListVariants(ctx context.Context, reference string, start, end int64, callsetIDs []string, pageSize int, pageToken string) (VariantPage, error)

	// ListReads returns every alignment covering [start, end) on
	// reference for the given read group set.
	ListReads(ctx context.Context, readGroupSetID, reference string, start, end int64) ([]pileup.Alignment, error)

	// ResolveCallsetID resolves a human-readable callset name (e.g. a
	// "--dad_callset_name" flag value) to the service's internal ID.
	ResolveCallsetID(ctx context.Context, datasetID, callsetName string) (string, error)
}
