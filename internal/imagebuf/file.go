package imagebuf

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// File is an encoded image as handed over by a picker: name, declared type
// and the original bytes.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Size returns the encoded size in bytes.
func (f File) Size() int64 { return int64(len(f.Data)) }

// IsImage reports whether the MIME type is image/*.
func (f File) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(f.MIMEType), "image/")
}

// NewFile builds a File, sniffing the MIME type when the declared one is
// missing or generic.
func NewFile(name, declared string, data []byte) File {
	return File{Name: name, MIMEType: ResolveMIME(declared, data), Data: data}
}

// ResolveMIME keeps a specific declared type and sniffs everything else.
func ResolveMIME(declared string, data []byte) string {
	declared = normalizeMIME(declared)
	switch declared {
	case "", "application/octet-stream", "binary/octet-stream":
		if len(data) == 0 {
			return "application/octet-stream"
		}
		return normalizeMIME(mimetype.Detect(data).String())
	}
	return declared
}
