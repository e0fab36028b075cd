package extract

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// WriteTestPDF writes a minimal single-font PDF to path with one page per
// entry in pages. Each page's lines are drawn top to bottom. Lines must be
// ASCII. An empty page produces a page with no text layer.
//
// This is intended for tests that need a real document on disk.
func WriteTestPDF(path string, pages ...[]string) error {
	if len(pages) == 0 {
		return fmt.Errorf("at least one page required")
	}

	n := len(pages)
	// object numbers: 1 catalog, 2 pages, 3 font, then page/content pairs
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	kids := make([]string, 0, n)
	for i, lines := range pages {
		pageObj := 4 + 2*i
		contentObj := pageObj + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj))

		var stream strings.Builder
		if len(lines) > 0 {
			stream.WriteString("BT /F1 12 Tf 14 TL 72 720 Td\n")
			for _, line := range lines {
				fmt.Fprintf(&stream, "(%s) Tj T*\n", escapePDFString(line))
			}
			stream.WriteString("ET")
		}

		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentObj),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", stream.Len(), stream.String()),
		)
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
