package resume

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/kalambet/jobportal/internal/apperr"
)

// minimalPDF builds a valid PDF with the given number of empty pages.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for range pages {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestInspect_PDF(t *testing.T) {
	info, err := Inspect("cv.pdf", MIMEPDF, minimalPDF(2))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Pages != 2 || info.Type != MIMEPDF || info.Name != "cv.pdf" {
		t.Errorf("info = %+v", info)
	}
	if !strings.Contains(info.Human(), "2 pages") {
		t.Errorf("Human = %q", info.Human())
	}
}

func TestInspect_WordByExtension(t *testing.T) {
	info, err := Inspect("/tmp/My Resume.DOCX", "", []byte("PK\x03\x04 docx body"))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Type != MIMEDocx || info.Pages != 0 || info.Name != "My Resume.DOCX" {
		t.Errorf("info = %+v", info)
	}
}

func TestInspect_Rejections(t *testing.T) {
	cases := map[string]struct {
		name, mime string
		data       []byte
	}{
		"image":       {"photo.png", "image/png", []byte("png")},
		"text":        {"cv.txt", "", []byte("plain")},
		"empty":       {"cv.pdf", MIMEPDF, nil},
		"corrupt pdf": {"cv.pdf", MIMEPDF, []byte("%PDF-1.4 not really")},
		"too large":   {"cv.doc", MIMEDoc, make([]byte, MaxSize+1)},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Inspect(c.name, c.mime, c.data)
			e, ok := apperr.As(err)
			if !ok || e.Kind != apperr.KindValidation || e.Field != "resume" {
				t.Errorf("err = %v, want resume ValidationError", err)
			}
		})
	}
}

func TestSupported(t *testing.T) {
	for mt, want := range map[string]bool{
		MIMEPDF:                        true,
		"application/pdf; name=cv.pdf": true,
		MIMEDoc:                        true,
		MIMEDocx:                       true,
		"text/plain":                   false,
		"":                             false,
	} {
		if got := Supported(mt); got != want {
			t.Errorf("Supported(%q) = %v, want %v", mt, got, want)
		}
	}
}
