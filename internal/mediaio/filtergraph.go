package mediaio

import "github.com/loomaudio/streamcore/internal/models"

// FilterRunner is the abstract interface to the external media I/O
// library's filter-graph facility (spec §4.3, §6): the effect chain
// builds a filter specification string naming nodes from its catalogue
// and hands it here to reconfigure the running graph; Process then
// pushes PCM through whatever nodes that spec describes.
//
// This mirrors the donor processing chain's setupFilterGraph/
// CreateProcessingFilterGraph boundary (filters.go), generalized from a
// two-pass offline pipeline to a graph that can be torn down and
// rebuilt while a session is live.
type FilterRunner interface {
	// Reconfigure tears down any existing graph, discarding the samples
	// still inside it rather than draining them to the output, and
	// builds a new one from spec.
	Reconfigure(spec string) error

	// Process pushes buf through the currently configured graph,
	// in place. It may allocate internally — spec §4.4 accepts this as
	// necessary and bounded within the render callback.
	Process(buf *models.AudioBuffer) error

	// Close releases any resources the graph holds.
	Close() error
}
