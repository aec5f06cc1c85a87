package resolve

import (
	"fmt"
	"path/filepath"
	"strings"

	"doc-recognizer/internal/domain"
)

// ClassifyPath sniffs a content class from a file extension. It exists for
// intake surfaces (CLI, hot folder) that have no declared class; callers may
// always override it.
func ClassifyPath(path string) (domain.ContentClass, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp":
		return domain.ContentClassRaster, nil
	case ".gif", ".tif", ".tiff":
		return domain.ContentClassMultipage, nil
	case ".docx", ".zip":
		return domain.ContentClassCompound, nil
	default:
		return "", fmt.Errorf("%w: cannot classify %q", domain.ErrInvalidInput, filepath.Base(path))
	}
}
