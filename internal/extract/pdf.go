package extract

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// RasterizePDF renders every page of a PDF to a PNG image. The filing
// PDFs are scans; the vision model reads the page images directly, so
// no text-layer parsing is attempted here.
func RasterizePDF(pdfBytes []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pages := make([][]byte, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("rasterize page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		pages = append(pages, buf.Bytes())
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	return pages, nil
}
