package util

import (
	"fmt"
	"log"
	"strings"

	"github.com/fadilmartias/ai-grader/internal/grading"
	"github.com/gen2brain/go-fitz"
)

// pages sampled when checking for a text layer
const textCheckPages = 3

type PDFInfo struct {
	Pages int
	// HasText is false for scanned documents without a text layer.
	HasText bool
}

// InspectPDF opens data as a PDF and enforces the page limit (0 = none).
func InspectPDF(data []byte, maxPages int) (PDFInfo, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return PDFInfo{}, grading.NewError(grading.ErrValidation, "`file` must be a readable PDF", err)
	}
	defer doc.Close()

	info := PDFInfo{Pages: doc.NumPage()}
	if info.Pages == 0 {
		return info, grading.ValidationError("`file` has no pages")
	}
	if maxPages > 0 && info.Pages > maxPages {
		return info, grading.ValidationError(fmt.Sprintf("`file` has %d pages (max %d)", info.Pages, maxPages))
	}

	for n := 0; n < min(info.Pages, textCheckPages); n++ {
		text, err := doc.Text(n)
		if err != nil {
			log.Printf("page %d: failed to extract text: %v", n+1, err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			info.HasText = true
			break
		}
	}
	if !info.HasText {
		log.Printf("PDF has no text layer in its first %d pages; grading relies on the provider's vision", textCheckPages)
	}
	return info, nil
}
