package domain

// ArtifactOrigin distinguishes shipped language artifacts from user imports.
type ArtifactOrigin string

const (
	ArtifactOriginBuiltin  ArtifactOrigin = "builtin"
	ArtifactOriginImported ArtifactOrigin = "imported"
)

// LanguageArtifact describes one cacheable recognition-model resource keyed
// by language code.
type LanguageArtifact struct {
	Code      string         `json:"code"`
	Label     string         `json:"label"`
	Origin    ArtifactOrigin `json:"origin"`
	FileName  string         `json:"fileName"`
	URL       string         `json:"url,omitempty"`
	Cached    bool           `json:"cached"`
	LocalPath string         `json:"localPath,omitempty"`
	SizeLabel string         `json:"sizeLabel,omitempty"`
}
