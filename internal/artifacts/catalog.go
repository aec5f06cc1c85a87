package artifacts

import "doc-recognizer/internal/domain"

const catalogBaseURL = "https://raw.githubusercontent.com/tesseract-ocr/tessdata_fast/main"

// builtinCatalog lists the language artifacts shipped with the app for
// one-click fetching. Imported artifacts extend this set at runtime.
var builtinCatalog = []domain.LanguageArtifact{
	{
		Code:      "eng",
		Label:     "English",
		FileName:  "eng.traineddata",
		URL:       catalogBaseURL + "/eng.traineddata",
		SizeLabel: "~4 MB",
	},
	{
		Code:      "deu",
		Label:     "German",
		FileName:  "deu.traineddata",
		URL:       catalogBaseURL + "/deu.traineddata",
		SizeLabel: "~8 MB",
	},
	{
		Code:      "fra",
		Label:     "French",
		FileName:  "fra.traineddata",
		URL:       catalogBaseURL + "/fra.traineddata",
		SizeLabel: "~7 MB",
	},
	{
		Code:      "spa",
		Label:     "Spanish",
		FileName:  "spa.traineddata",
		URL:       catalogBaseURL + "/spa.traineddata",
		SizeLabel: "~9 MB",
	},
	{
		Code:      "ita",
		Label:     "Italian",
		FileName:  "ita.traineddata",
		URL:       catalogBaseURL + "/ita.traineddata",
		SizeLabel: "~7 MB",
	},
	{
		Code:      "por",
		Label:     "Portuguese",
		FileName:  "por.traineddata",
		URL:       catalogBaseURL + "/por.traineddata",
		SizeLabel: "~8 MB",
	},
	{
		Code:      "rus",
		Label:     "Russian",
		FileName:  "rus.traineddata",
		URL:       catalogBaseURL + "/rus.traineddata",
		SizeLabel: "~10 MB",
	},
	{
		Code:      "jpn",
		Label:     "Japanese",
		FileName:  "jpn.traineddata",
		URL:       catalogBaseURL + "/jpn.traineddata",
		SizeLabel: "~6 MB",
	},
	{
		Code:      "chi_sim",
		Label:     "Chinese (Simplified)",
		FileName:  "chi_sim.traineddata",
		URL:       catalogBaseURL + "/chi_sim.traineddata",
		SizeLabel: "~11 MB",
	},
}

// BuiltinCatalog returns a copy of the shipped language artifact presets.
func BuiltinCatalog() []domain.LanguageArtifact {
	out := make([]domain.LanguageArtifact, len(builtinCatalog))
	copy(out, builtinCatalog)
	for i := range out {
		out[i].Origin = domain.ArtifactOriginBuiltin
	}
	return out
}
