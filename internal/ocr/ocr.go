// Package ocr provides the optical character recognition capability used as
// the fallback when a page has no embedded text layer. Recognition runs in an
// external service; this package holds the narrow client interface and its
// HTTP implementation.
package ocr

import "context"

// Recognizer recognizes the text of one page of a document. The remote
// service rasterizes the page itself; callers pass the original document
// bytes and a 1-based page number.
type Recognizer interface {
	RecognizePage(ctx context.Context, document []byte, page int) (string, error)
}
