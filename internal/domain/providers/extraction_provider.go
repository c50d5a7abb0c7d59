package providers

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrExtractionUnauthorized indicates the vision API rejected our credentials.
var ErrExtractionUnauthorized = errors.New("vision extraction unauthorized")

// BillExtractor reads a photographed or scanned document through a
// vision-capable model. It is the only network-bound collaborator of an audit
// run: it either returns a usable structured guess or fails, with no partial
// extraction. The returned JSON is untrusted and must be normalized before
// any downstream use.
type BillExtractor interface {
	// ExtractBill returns the model's raw structured JSON guess for a medical
	// bill image (PNG, JPG, TIFF) or a pre-rendered PDF page.
	ExtractBill(ctx context.Context, document []byte, mediaType string) (json.RawMessage, error)

	// ExtractDocumentText returns plain text read from a policy document
	// image, for the policy parser.
	ExtractDocumentText(ctx context.Context, document []byte, mediaType string) (string, error)
}
