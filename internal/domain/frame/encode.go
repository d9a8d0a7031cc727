package frame

import (
	"encoding/base64"

	"github.com/gabriel-vasile/mimetype"
)

// DataURI renders the frame as a data URI for embedding in JSON payloads.
// The content type is sniffed from the bytes rather than assumed.
func (f *Frame) DataURI() string {
	mime := mimetype.Detect(f.Data).String()
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}
