package transfer

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen matches mimetype's default detection window.
const sniffLen = 3072

// DetectContentType sniffs the MIME type from the head of r. The consumed
// head is stitched back in front of the returned reader, so the caller
// streams the full payload as if nothing was read.
//
// When sniffing yields only the generic application/octet-stream, the
// name's extension is tried as a fallback.
func DetectContentType(name string, r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]

	ct := mimetype.Detect(head).String()
	if isGenericContentType(ct) {
		if byExt := mime.TypeByExtension(path.Ext(name)); byExt != "" {
			ct = byExt
		}
	}

	return ct, io.MultiReader(bytes.NewReader(head), r), nil
}

func isGenericContentType(ct string) bool {
	return strings.HasPrefix(ct, "application/octet-stream")
}
