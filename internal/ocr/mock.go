package ocr

import "context"

// Mock is a canned recognizer for tests. PageText maps 1-based page numbers
// to recognized text; missing pages return empty text. Err, when set, is
// returned for every call.
type Mock struct {
	PageText map[int]string
	Err      error
	Calls    int
}

// RecognizePage returns the canned text for page.
func (m *Mock) RecognizePage(ctx context.Context, document []byte, page int) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.PageText[page], nil
}
