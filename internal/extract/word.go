package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// DOCX is a ZIP containing the document body as OOXML, normally at
// word/document.xml. We collect all <w:t> text nodes so content survives
// regardless of paragraph or run attributes.

const docxBodyPath = "word/document.xml"

// wordTextNode matches <w:t>text</w:t> including attributed forms like
// <w:t xml:space="preserve">.
var wordTextNode = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract word document: not a zip: %w", err)
	}
	var body []byte
	for _, f := range zr.File {
		if f.Name != docxBodyPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("extract word document: open %s: %w", f.Name, err)
		}
		body, err = io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("extract word document: read %s: %w", f.Name, err)
		}
		break
	}
	if body == nil {
		return "", fmt.Errorf("extract word document: %s not found", docxBodyPath)
	}
	parts := wordTextNode.FindAllStringSubmatch(string(body), -1)
	var b strings.Builder
	for _, p := range parts {
		if t := strings.TrimSpace(p[1]); t != "" {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t)
		}
	}
	return b.String(), nil
}
