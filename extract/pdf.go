package extract

import (
	"fmt"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// pdfText is the direct text layer of a PDF.
type pdfText struct {
	pages     []string // text of each page read, in order
	pageCount int      // total pages in the document
}

// readPDF reads the text layer of the PDF at path. At most maxPages pages are
// read, and reading stops once budget runes have been collected. The parser
// panics on some malformed inputs; a panic while opening the document is
// returned as ErrMalformedPDF, a panic on a single page leaves that page empty.
func readPDF(path string, maxPages, budget int) (result pdfText, err error) {
	f, err := os.Open(path)
	if err != nil {
		return result, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return result, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformedPDF, r)
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrMalformedPDF, err)
	}

	result.pageCount = reader.NumPage()
	if result.pageCount <= 0 {
		return result, nil
	}

	limit := result.pageCount
	if maxPages > 0 && maxPages < limit {
		limit = maxPages
	}

	collected := 0
	for i := 1; i <= limit; i++ {
		text := pageText(reader, i)
		result.pages = append(result.pages, text)
		collected += utf8.RuneCountInString(text)
		if budget > 0 && collected >= budget {
			break
		}
	}
	return result, nil
}

func pageText(reader *pdf.Reader, num int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	var b strings.Builder
	var prev pdf.Text
	for i, item := range page.Content().Text {
		if i > 0 {
			switch {
			case math.Abs(item.Y-prev.Y) > item.FontSize/2:
				b.WriteByte('\n')
			case item.X-(prev.X+prev.W) > item.FontSize*0.2:
				b.WriteByte(' ')
			}
		}
		b.WriteString(item.S)
		prev = item
	}
	return b.String()
}
