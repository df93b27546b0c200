package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DestinationFormat enumerates supported conversion targets.
type DestinationFormat string

const (
	FormatPDF  DestinationFormat = "pdf"
	FormatDOCX DestinationFormat = "docx"
	FormatTIFF DestinationFormat = "tiff"
	FormatJPEG DestinationFormat = "jpeg"
	FormatPNG  DestinationFormat = "png"
	FormatSVG  DestinationFormat = "svg"
)

// Extension returns the file extension the server uses for outputs of this format.
func (f DestinationFormat) Extension() string {
	return string(f)
}

// honorsPageRanges reports whether the server applies per-source pages for this format.
func (f DestinationFormat) honorsPageRanges() bool {
	return f == FormatPDF || f == FormatTIFF
}

// ParseDestinationFormat maps a user supplied name onto a known format.
func ParseDestinationFormat(name string) (DestinationFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDOCX, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "svg":
		return FormatSVG, nil
	default:
		return "", fmt.Errorf("unsupported destination format: %s", name)
	}
}

// Operation names a client call for error reporting.
type Operation string

const (
	OperationUpload           Operation = "upload work file"
	OperationDownload         Operation = "download work file"
	OperationSubmitConversion Operation = "submit conversion"
	OperationGetConversion    Operation = "get conversion status"
	OperationConversion       Operation = "conversion"
	OperationSubmitMarkupBurn Operation = "submit markup burner"
	OperationMarkupBurn       Operation = "markup burning"
	OperationReuploadWorkFile Operation = "re-upload work file"
)

// RemoteWorkFile identifies a file stored on a specific PrizmDoc Server node.
// It is an immutable value; compare with ==.
type RemoteWorkFile struct {
	FileID        string `json:"fileId"`
	AffinityToken string `json:"affinityToken,omitempty"`
	FileExtension string `json:"fileExtension,omitempty"`
}

func (wf RemoteWorkFile) String() string {
	if wf.AffinityToken == "" {
		return fmt.Sprintf("work file %s (.%s)", wf.FileID, wf.FileExtension)
	}
	return fmt.Sprintf("work file %s (.%s, affinity %s)", wf.FileID, wf.FileExtension, wf.AffinityToken)
}

// SourceDocument is one input to a conversion. Exactly one of LocalFilePath
// and RemoteWorkFile must be set.
type SourceDocument struct {
	LocalFilePath  string
	RemoteWorkFile *RemoteWorkFile
	Pages          string
	Password       string
}

// SourceFromFile describes a local file to be uploaded as part of a conversion.
func SourceFromFile(path string) SourceDocument {
	return SourceDocument{LocalFilePath: path}
}

// SourceFromWorkFile describes a file which is already stored on the server.
func SourceFromWorkFile(wf RemoteWorkFile) SourceDocument {
	return SourceDocument{RemoteWorkFile: &wf}
}

// WithPages returns a copy of the source restricted to the given page range (e.g. "1-3,7").
func (s SourceDocument) WithPages(pages string) SourceDocument {
	s.Pages = pages
	return s
}

// WithPassword returns a copy of the source carrying a document password.
func (s SourceDocument) WithPassword(password string) SourceDocument {
	s.Password = password
	return s
}

func (s SourceDocument) validate() error {
	if (s.LocalFilePath == "") == (s.RemoteWorkFile == nil) {
		return ErrInvalidSourceDocument
	}
	if s.RemoteWorkFile != nil && s.RemoteWorkFile.FileID == "" {
		return ErrEmptyFileID
	}
	return nil
}

// ImageDestinationOptions configures raster outputs (JPEG, PNG).
type ImageDestinationOptions struct {
	MaxWidth  string `json:"maxWidth,omitempty"`
	MaxHeight string `json:"maxHeight,omitempty"`
}

// TIFFDestinationOptions configures TIFF output.
type TIFFDestinationOptions struct {
	MaxWidth            string `json:"maxWidth,omitempty"`
	MaxHeight           string `json:"maxHeight,omitempty"`
	ForceOneFilePerPage bool   `json:"forceOneFilePerPage,omitempty"`
}

// OCROptions turns on text recognition for PDF output.
type OCROptions struct {
	Language string `json:"language"`
	DPI      int    `json:"dpi,omitempty"`
}

// PDFDestinationOptions configures PDF output.
type PDFDestinationOptions struct {
	ForceOneFilePerPage bool        `json:"forceOneFilePerPage,omitempty"`
	OCR                 *OCROptions `json:"ocr,omitempty"`
}

// HeaderFooterLine is one line of header or footer text. Text may contain
// server expressions such as {{pageNumber}}.
type HeaderFooterLine struct {
	Left   string `json:"left,omitempty"`
	Center string `json:"center,omitempty"`
	Right  string `json:"right,omitempty"`
}

// HeaderFooterOptions is a block of text lines appended to each output page.
type HeaderFooterOptions struct {
	Lines      []HeaderFooterLine `json:"lines"`
	FontFamily string             `json:"fontFamily,omitempty"`
	FontSize   string             `json:"fontSize,omitempty"`
	Color      string             `json:"color,omitempty"`
}

// DestinationOptions describes the desired output. Only the sub-options
// matching Format are sent to the server.
type DestinationOptions struct {
	Format DestinationFormat
	PDF    *PDFDestinationOptions
	TIFF   *TIFFDestinationOptions
	JPEG   *ImageDestinationOptions
	PNG    *ImageDestinationOptions
	Header *HeaderFooterOptions
	Footer *HeaderFooterOptions
}

// NewDestinationOptions returns options for the format with no sub-options set.
func NewDestinationOptions(format DestinationFormat) DestinationOptions {
	return DestinationOptions{Format: format}
}

// ConversionSourceDocument is a source which contributed to a conversion result,
// together with the pages consumed from it.
type ConversionSourceDocument struct {
	RemoteWorkFile RemoteWorkFile
	Pages          string
}

// ConversionResult is one output of a conversion. Successful results carry a
// remote work file and a page count; failed results carry an ErrorCode.
type ConversionResult struct {
	remoteWorkFile *RemoteWorkFile
	PageCount      int
	ErrorCode      string
	Sources        []ConversionSourceDocument
}

// IsSuccess reports whether the result produced an output file.
func (r ConversionResult) IsSuccess() bool {
	return r.ErrorCode == "" && r.remoteWorkFile != nil
}

// RemoteWorkFile returns the output file. It fails with ErrNotSuccessful for
// error results.
func (r ConversionResult) RemoteWorkFile() (RemoteWorkFile, error) {
	if !r.IsSuccess() {
		return RemoteWorkFile{}, fmt.Errorf("%w: result has error code %s", ErrNotSuccessful, r.ErrorCode)
	}
	return *r.remoteWorkFile, nil
}

// ProcessStatus is the state of a server process as returned by a status request.
type ProcessStatus struct {
	ProcessID       string          `json:"processId"`
	State           string          `json:"state"`
	PercentComplete int             `json:"percentComplete"`
	ErrorCode       string          `json:"errorCode,omitempty"`
	Raw             json.RawMessage `json:"-"`
}

// Terminal reports whether the process has stopped.
func (s ProcessStatus) Terminal() bool {
	return s.State != "" && s.State != StateProcessing
}
