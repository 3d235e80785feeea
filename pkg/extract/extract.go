package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// Kind is the document class an upload was sniffed as.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindAudio   Kind = "audio"
	KindUnknown Kind = ""
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoText          = errors.New("document contains no extractable text")
)

// Detection describes the sniffed content of an upload.
type Detection struct {
	Kind      Kind
	MimeType  string
	Extension string
}

// Detect sniffs the content (not the filename) of an upload. The reader is
// consumed only up to mimetype's read limit.
func Detect(r io.Reader) (*Detection, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}

	d := &Detection{MimeType: mt.String(), Extension: mt.Extension()}
	for m := mt; m != nil; m = m.Parent() {
		switch {
		case m.Is("application/pdf"):
			d.Kind = KindPDF
		case strings.HasPrefix(m.String(), "audio/"):
			d.Kind = KindAudio
		case m.Is("video/webm"), m.Is("video/mp4"), m.Is("video/ogg"):
			// Browser recordings are often stored in video containers with an audio track only
			d.Kind = KindAudio
		}
		if d.Kind != KindUnknown {
			return d, nil
		}
	}

	return d, ErrUnsupportedType
}

// PDFText extracts plain text from a PDF held in memory.
func PDFText(data []byte) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("pdf parse: %v", p)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	return readPlainText(r)
}

// PDFFile extracts plain text from a PDF on disk.
func PDFFile(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("pdf open: %w", err)
	}
	defer f.Close()
	return readPlainText(r)
}

func readPlainText(r *pdf.Reader) (text string, err error) {
	// The parser panics on some malformed content streams
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("pdf parse: %v", p)
		}
	}()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}

	text = CollapseWhitespace(string(b))
	if text == "" {
		// Scanned PDFs have no text layer
		return "", ErrNoText
	}
	return text, nil
}

var (
	spaceRun   = regexp.MustCompile(`[ \t\f\v]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// CollapseWhitespace normalizes runs of spaces and blank lines.
func CollapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\x00", "")
	s = spaceRun.ReplaceAllString(s, " ")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
