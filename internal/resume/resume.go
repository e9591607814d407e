// Package resume inspects resume attachments for job applications. Only PDF
// and Word documents are accepted; PDFs must parse.
package resume

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ledongthuc/pdf"

	"github.com/kalambet/jobportal/internal/apperr"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDoc  = "application/msword"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// MaxSize bounds an attachment.
const MaxSize = 10 << 20

var byExtension = map[string]string{
	".pdf":  MIMEPDF,
	".doc":  MIMEDoc,
	".docx": MIMEDocx,
}

// Info describes an accepted attachment.
type Info struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Size  int    `json:"size"`
	Pages int    `json:"pages,omitempty"`
}

// Human renders the attachment for CLI output, e.g. "cv.pdf (2 pages, 48 kB)".
func (i Info) Human() string {
	size := humanize.Bytes(uint64(i.Size))
	if i.Pages > 0 {
		return fmt.Sprintf("%s (%d %s, %s)", i.Name, i.Pages, plural(i.Pages, "page", "pages"), size)
	}
	return fmt.Sprintf("%s (%s)", i.Name, size)
}

// Map returns the form-state representation of the attachment.
func (i Info) Map() map[string]any {
	m := map[string]any{"name": i.Name, "type": i.Type, "size": i.Size}
	if i.Pages > 0 {
		m["pages"] = i.Pages
	}
	return m
}

// Supported reports whether mimeType is an accepted resume type. Parameters
// such as charset are ignored.
func Supported(mimeType string) bool {
	mt := mediaType(mimeType)
	return mt == MIMEPDF || mt == MIMEDoc || mt == MIMEDocx
}

// DetectType returns the declared type, or the type implied by name's extension
// when none was declared.
func DetectType(name, declared string) string {
	if mt := mediaType(declared); mt != "" && mt != "application/octet-stream" {
		return mt
	}
	return byExtension[strings.ToLower(filepath.Ext(name))]
}

// Inspect validates an attachment and returns its description. Unsupported
// types, empty or oversized files, and PDFs that do not parse are validation errors.
func Inspect(name, mimeType string, data []byte) (Info, error) {
	const op = "resume.Inspect"
	mt := DetectType(name, mimeType)
	if !Supported(mt) {
		return Info{}, apperr.Validation("unsupported file type").WithOp(op).WithField("resume")
	}
	if len(data) == 0 {
		return Info{}, apperr.Validation("resume file is empty").WithOp(op).WithField("resume")
	}
	if len(data) > MaxSize {
		return Info{}, apperr.Validation(fmt.Sprintf("resume exceeds %s", humanize.Bytes(MaxSize))).WithOp(op).WithField("resume")
	}

	info := Info{Name: filepath.Base(name), Type: mt, Size: len(data)}
	if mt == MIMEPDF {
		pages, err := countPages(data)
		if err != nil {
			return Info{}, apperr.Wrap(apperr.KindValidation, "resume is not a readable PDF", err).WithOp(op).WithField("resume")
		}
		info.Pages = pages
	}
	return info, nil
}

func countPages(data []byte) (n int, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	n = r.NumPage()
	if n <= 0 {
		return 0, fmt.Errorf("pdf has no pages")
	}
	return n, nil
}

func mediaType(s string) string {
	if s == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(s)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return mt
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
