package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrExtractionFailed = errors.New("text extraction failed")
)

// ExtractService pulls plain text out of the supported document containers.
type ExtractService struct{}

func NewExtractService() *ExtractService {
	return &ExtractService{}
}

// Extract reads the file at path and returns its trimmed plain text.
func (s *ExtractService) Extract(path, fileType string) (string, error) {
	switch strings.ToLower(fileType) {
	case "pdf":
		return s.extractPDF(path)
	case "docx":
		return s.extractDOCX(path)
	case "txt":
		return s.extractTXT(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, fileType)
	}
}

func (s *ExtractService) extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrExtractionFailed, err)
	}
	defer f.Close()

	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: read pdf text: %v", ErrExtractionFailed, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("%w: read pdf buffer: %v", ErrExtractionFailed, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (s *ExtractService) extractTXT(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read txt: %v", ErrExtractionFailed, err)
	}
	return strings.TrimSpace(string(content)), nil
}

// docx files are ZIP archives; the text lives in word/document.xml.
func (s *ExtractService) extractDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: open docx: %v", ErrExtractionFailed, err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open document.xml: %v", ErrExtractionFailed, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: read document.xml: %v", ErrExtractionFailed, err)
		}

		return parseDocumentXML(content), nil
	}

	return "", fmt.Errorf("%w: docx has no word/document.xml", ErrExtractionFailed)
}

type documentXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

func parseDocumentXML(content []byte) string {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return ""
	}

	var result strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, text := range run.Text {
				result.WriteString(text.Content)
			}
		}
	}
	return strings.TrimSpace(result.String())
}
