// Package extract turns uploaded study documents into plain text.
package extract

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
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Supported media types. Anything else is rejected before extraction runs.
const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// ErrUnsupportedType is returned for media types outside the allow-list.
var ErrUnsupportedType = errors.New("unsupported media type")

// Supported reports whether the declared media type is on the allow-list.
func Supported(mimeType string) bool {
	switch cleanMimeType(mimeType) {
	case MimePDF, MimeDOCX, MimePPTX:
		return true
	}
	return false
}

// Text extracts plain text from the file at path. The source file is only
// read, never modified or removed. Decoder errors pass through wrapped.
func Text(ctx context.Context, path string, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("extract read %s: %w", filepath.Base(path), err)
	}
	return FromBytes(ctx, data, mimeType, filepath.Base(path))
}

// FromBytes extracts text from an in-memory payload.
func FromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch normalizeMimeType(mimeType, fileName, data) {
	case MimePDF:
		return extractPDF(data)
	case MimeDOCX:
		return extractDOCX(data)
	case MimePPTX:
		return extractPPTX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, cleanMimeType(mimeType))
	}
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("decode pdf: %w", err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("decode pdf: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("decode pdf: %w", err)
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("decode docx: %w", err)
	}
	defer reader.Close()

	return stripOfficeXML(reader.Editable().GetContent()), nil
}

// extractPPTX walks the slide XML parts in slide order and strips markup.
func extractPPTX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty pptx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("decode pptx: %w", err)
	}

	var slides []*zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			slides = append(slides, f)
		}
	}
	if len(slides) == 0 {
		return "", errors.New("no slides found")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].Name < slides[j].Name })

	var out strings.Builder
	for _, slide := range slides {
		rc, err := slide.Open()
		if err != nil {
			return "", fmt.Errorf("decode pptx: %w", err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("decode pptx: %w", err)
		}
		text := stripOfficeXML(string(raw))
		if text == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(text)
	}
	return out.String(), nil
}

// stripOfficeXML reduces OOXML markup to its character data, inserting line
// breaks at paragraph boundaries.
func stripOfficeXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func cleanMimeType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := cleanMimeType(mimeType)
	if clean != "application/zip" && clean != "application/octet-stream" {
		return clean
	}

	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".docx":
		return MimeDOCX
	case ".pptx":
		return MimePPTX
	case ".pdf":
		return MimePDF
	default:
		return clean
	}
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		switch strings.ReplaceAll(f.Name, "\\", "/") {
		case "word/document.xml":
			return MimeDOCX
		case "ppt/presentation.xml":
			return MimePPTX
		}
	}
	return ""
}
