package resolve

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"path"
	"sort"
	"strings"

	"doc-recognizer/internal/domain"
)

// resolveCompound opens a zip container, extracts the text body from the
// primary XML part, and decodes embedded raster members into extra pages.
// Text and pages are carried independently on the result.
func (r *Resolver) resolveCompound(content []byte) (Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Document{}, fmt.Errorf("%w: open compound container: %v", domain.ErrUnsupportedFormat, err)
	}

	text, err := extractBodyText(reader)
	if err != nil {
		return Document{}, err
	}

	pages := r.extractEmbeddedPages(reader)
	r.logger.Debug("resolved compound document", "pages", len(pages), "textBytes", len(text))
	return Document{Pages: pages, ExtractedText: text}, nil
}

// extractBodyText reads paragraph text runs from the container's main XML
// document part.
func extractBodyText(reader *zip.Reader) (string, error) {
	part := findBodyPart(reader)
	if part == nil {
		return "", nil
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open document part %s: %v", domain.ErrUnsupportedFormat, part.Name, err)
	}
	defer rc.Close()

	text, err := decodeParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("%w: parse document part %s: %v", domain.ErrUnsupportedFormat, part.Name, err)
	}
	return text, nil
}

// findBodyPart locates the main document XML, preferring the docx layout.
func findBodyPart(reader *zip.Reader) *zip.File {
	var fallback *zip.File
	for _, file := range reader.File {
		if file.Name == "word/document.xml" {
			return file
		}
		if fallback == nil && strings.HasSuffix(file.Name, "document.xml") {
			fallback = file
		}
	}
	return fallback
}

// decodeParagraphs streams the XML token-wise, emitting one line per
// paragraph element and concatenating text runs within it.
func decodeParagraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var builder strings.Builder
	var inText bool
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				builder.Write(t)
			}
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// extractEmbeddedPages decodes raster members under the container's media
// directory into ordered pages. Undecodable members are skipped, not fatal.
func (r *Resolver) extractEmbeddedPages(reader *zip.Reader) []Page {
	var members []*zip.File
	for _, file := range reader.File {
		dir := path.Dir(file.Name)
		if dir != "word/media" && dir != "media" {
			continue
		}
		switch strings.ToLower(path.Ext(file.Name)) {
		case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".gif":
			members = append(members, file)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })

	pages := make([]Page, 0, len(members))
	for _, member := range members {
		rc, err := member.Open()
		if err != nil {
			r.logger.Warn("skipping unreadable embedded image", "member", member.Name, "error", err)
			continue
		}
		img, _, err := image.Decode(rc)
		rc.Close()
		if err != nil {
			r.logger.Warn("skipping undecodable embedded image", "member", member.Name, "error", err)
			continue
		}
		pages = append(pages, Page{Index: len(pages), Image: img})
	}
	return pages
}
