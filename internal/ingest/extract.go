package ingest

import (
	"bytes"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Kind identifies how a file's text is extracted.
type Kind string

const (
	KindPDF      Kind = "pdf"
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindHTML     Kind = "html"
)

var extensions = map[string]Kind{
	".pdf":      KindPDF,
	".txt":      KindText,
	".text":     KindText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".html":     KindHTML,
	".htm":      KindHTML,
}

var mediaTypes = map[string]Kind{
	"application/pdf": KindPDF,
	"text/plain":      KindText,
	"text/markdown":   KindMarkdown,
	"text/html":       KindHTML,
}

// Page is the text of one page. Number is empty for formats without pages.
type Page struct {
	Number string
	Text   string
}

// Detect resolves the kind of a file from its extension, falling back to its content type.
func Detect(name, contentType string) (Kind, error) {
	if k, ok := extensions[strings.ToLower(filepath.Ext(name))]; ok {
		return k, nil
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if k, ok := mediaTypes[mt]; ok {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, name)
}

// Supported reports whether name has an extension Detect recognizes.
func Supported(name string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extract returns the text pages of data.
func Extract(kind Kind, name string, data []byte) ([]Page, error) {
	switch kind {
	case KindPDF:
		return extractPDF(data)
	case KindHTML:
		return extractHTML(name, data)
	case KindText, KindMarkdown:
		return []Page{{Text: string(data)}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
}

// PageCount validates data as a PDF and returns its page count.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}
	return n, nil
}

func extractPDF(data []byte) ([]Page, error) {
	if _, err := PageCount(data); err != nil {
		return nil, err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}

	pages := make([]Page, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, Page{Number: strconv.Itoa(i), Text: text})
	}
	return pages, nil
}

const blockSelector = "h1,h2,h3,h4,h5,h6,p,li,pre,blockquote,td"

func extractHTML(name string, data []byte) ([]Page, error) {
	text := readableText(name, data)
	if text == "" {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		doc.Find("script,style,noscript").Remove()
		text = blocks(doc.Selection)
		if text == "" {
			text = normalizeSpace(doc.Find("body").Text())
		}
	}
	return []Page{{Text: text}}, nil
}

func readableText(name string, data []byte) string {
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(data), &url.URL{Scheme: "file", Path: "/" + name})
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return ""
	}

	text := blocks(doc.Selection)
	if title := normalizeSpace(article.Title); title != "" && text != "" {
		text = title + "\n\n" + text
	}
	return text
}

func blocks(sel *goquery.Selection) string {
	var parts []string
	sel.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if t := normalizeSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n")
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
