package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

var errPageTimeout = errors.New("page extraction timed out")

type Page struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// Partitioner turns raw document bytes into text pages.
type Partitioner interface {
	Extract(ctx context.Context, name string, content []byte) ([]Page, error)
}

// FilePartitioner extracts text from pdf, docx, txt, pptx and xlsx files.
// The pdf and docx readers work on paths, so content is staged in a temp file.
type FilePartitioner struct {
	TempDir     string
	PageTimeout time.Duration
}

func NewFilePartitioner(tempDir string) *FilePartitioner {
	return &FilePartitioner{TempDir: tempDir, PageTimeout: 10 * time.Second}
}

func (p *FilePartitioner) Extract(ctx context.Context, name string, content []byte) ([]Page, error) {
	docType := commonModels.FileType(name)
	switch docType {
	case commonModels.PPTX:
		return extractPptx(content)
	case commonModels.XLSX:
		return extractXlsx(content)
	case commonModels.ERR:
		return nil, fmt.Errorf("%w: %s", commonModels.ErrUnsupportedExtension, name)
	}

	if p.TempDir != "" {
		if err := os.MkdirAll(p.TempDir, 0o755); err != nil {
			return nil, err
		}
	}
	tmp, err := os.CreateTemp(p.TempDir, "extract-*"+filepath.Ext(name))
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err = tmp.Write(content); err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err = tmp.Close(); err != nil {
		return nil, err
	}

	switch docType {
	case commonModels.PDF:
		return p.extractPDF(ctx, tmp.Name())
	case commonModels.TXT:
		pages, err := extractdocxTxt(tmp.Name())
		if err != nil {
			// plain text never needs a parser; keep whatever decodes as UTF-8
			logger.Warn("Text extraction failed, decoding raw bytes", "name", name, "error", err)
			return []Page{{Number: 1, Content: strings.ToValidUTF8(string(content), "")}}, nil
		}
		return pages, nil
	default:
		return extractdocxTxt(tmp.Name())
	}
}

func (p *FilePartitioner) extractPDF(ctx context.Context, path string) ([]Page, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []Page
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := p.protectExtract(page)
		if err != nil {
			// keep the pages that did parse
			logger.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}
		pages = append(pages, Page{Number: i, Content: content})
	}
	return pages, nil
}

// extractdocxTxt reads a .docx, .odt, .rtf or plaintext file as one page.
func extractdocxTxt(path string) ([]Page, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", filepath.Ext(path), err)
	}
	return []Page{{Number: 1, Content: text}}, nil
}

// protectExtract bounds the time spent on one page; some malformed pdfs make
// the text walker spin.
func (p *FilePartitioner) protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(p.PageTimeout):
		return "", errPageTimeout
	}
}

// extractPptx returns one page per slide, in slide order.
func extractPptx(content []byte) ([]Page, error) {
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pptx: %w", err)
	}

	type slide struct {
		number int
		file   *zip.File
	}
	var slides []slide
	for _, f := range archive.File {
		name := strings.TrimPrefix(f.Name, "ppt/slides/slide")
		if name == f.Name || !strings.HasSuffix(name, ".xml") || strings.Contains(name, "/") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{number: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	pages := make([]Page, 0, len(slides))
	for _, s := range slides {
		text, err := xmlText(s.file, "t")
		if err != nil {
			return nil, fmt.Errorf("failed to read slide %d: %w", s.number, err)
		}
		pages = append(pages, Page{Number: s.number, Content: text})
	}
	return pages, nil
}

// extractXlsx returns the workbook's shared strings as one page. Numeric cells
// carry no searchable prose and are skipped.
func extractXlsx(content []byte) ([]Page, error) {
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	for _, f := range archive.File {
		if f.Name != "xl/sharedStrings.xml" {
			continue
		}
		text, err := xmlText(f, "t")
		if err != nil {
			return nil, fmt.Errorf("failed to read shared strings: %w", err)
		}
		return []Page{{Number: 1, Content: text}}, nil
	}
	return nil, nil
}

// xmlText joins the character data of every element with the given local
// name, one element per line.
func xmlText(f *zip.File, local string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var lines []string
	inside := false
	var current strings.Builder
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == local {
				inside = true
				current.Reset()
			}
		case xml.EndElement:
			if t.Name.Local == local && inside {
				inside = false
				if s := strings.TrimSpace(current.String()); s != "" {
					lines = append(lines, s)
				}
			}
		case xml.CharData:
			if inside {
				current.Write(t)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
