package bibs

import "context"

// Store is the persistence surface for bib assignment: a single batched
// write of every drawn bib number.
type Store interface {
	UpdateBibNumbers(ctx context.Context, updates []BibUpdate) error
}
