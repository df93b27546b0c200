package client

import (
	"encoding/json"
	"fmt"
)

type conversionRequest struct {
	Input conversionInput `json:"input"`
}

type conversionInput struct {
	Sources  []requestSource    `json:"sources"`
	Dest     requestDestination `json:"dest"`
	Features map[string]feature `json:"_features,omitempty"`
}

type requestSource struct {
	FileID   string `json:"fileId"`
	Pages    string `json:"pages,omitempty"`
	Password string `json:"password,omitempty"`
}

type requestDestination struct {
	Format      DestinationFormat        `json:"format"`
	PDFOptions  *PDFDestinationOptions   `json:"pdfOptions,omitempty"`
	TIFFOptions *TIFFDestinationOptions  `json:"tiffOptions,omitempty"`
	JPEGOptions *ImageDestinationOptions `json:"jpegOptions,omitempty"`
	PNGOptions  *ImageDestinationOptions `json:"pngOptions,omitempty"`
	Header      *HeaderFooterOptions     `json:"header,omitempty"`
	Footer      *HeaderFooterOptions     `json:"footer,omitempty"`
}

type feature struct {
	Enabled bool `json:"enabled"`
}

// requiredFeatures lists server features which must be switched on for a format.
var requiredFeatures = map[DestinationFormat]string{
	FormatDOCX: "pdf2docx",
}

// buildConversionRequest serializes a content conversion request. Every source
// must already reference a work file. The output is deterministic.
func buildConversionRequest(sources []SourceDocument, dest DestinationOptions) ([]byte, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if dest.Format == "" {
		return nil, ErrEmptyDestination
	}

	req := conversionRequest{
		Input: conversionInput{
			Sources: make([]requestSource, 0, len(sources)),
			Dest: requestDestination{
				Format: dest.Format,
				Header: dest.Header,
				Footer: dest.Footer,
			},
		},
	}

	for i, src := range sources {
		if src.RemoteWorkFile == nil || src.RemoteWorkFile.FileID == "" {
			return nil, fmt.Errorf("source document at index %d: %w", i, ErrEmptyFileID)
		}
		req.Input.Sources = append(req.Input.Sources, requestSource{
			FileID:   src.RemoteWorkFile.FileID,
			Pages:    src.Pages,
			Password: src.Password,
		})
	}

	switch dest.Format {
	case FormatPDF:
		req.Input.Dest.PDFOptions = dest.PDF
	case FormatTIFF:
		req.Input.Dest.TIFFOptions = dest.TIFF
	case FormatJPEG:
		req.Input.Dest.JPEGOptions = dest.JPEG
	case FormatPNG:
		req.Input.Dest.PNGOptions = dest.PNG
	}

	if name, ok := requiredFeatures[dest.Format]; ok {
		req.Input.Features = map[string]feature{name: {Enabled: true}}
	}

	return json.Marshal(req)
}
