package client

import (
	"context"
	"io"
)

// Info provides metadata about the client
type Info interface {
	Name() string
	Version() string
}

// WorkFiles moves bytes to and from the server.
type WorkFiles interface {
	Upload(ctx context.Context, data []byte, fileExtension string) (RemoteWorkFile, error)
	UploadReader(ctx context.Context, r io.Reader, fileExtension string) (RemoteWorkFile, error)
	UploadFile(ctx context.Context, path string) (RemoteWorkFile, error)
	Download(ctx context.Context, wf RemoteWorkFile) ([]byte, error)
	DownloadTo(ctx context.Context, wf RemoteWorkFile, dst io.Writer) error
	SaveToFile(ctx context.Context, wf RemoteWorkFile, path string) error
}

// Converter handles content conversion operations
type Converter interface {
	Convert(ctx context.Context, sources []SourceDocument, dest DestinationOptions) ([]ConversionResult, error)
	ConvertToPDF(ctx context.Context, source SourceDocument) (ConversionResult, error)
	CombineToPDF(ctx context.Context, sources []SourceDocument) (ConversionResult, error)
	OCRToPDF(ctx context.Context, source SourceDocument, ocr OCROptions) (ConversionResult, error)
	GetConversionStatus(ctx context.Context, processID, affinityToken string) (*ProcessStatus, error)
}

// MarkupBurner burns annotation markup into documents.
type MarkupBurner interface {
	BurnMarkup(ctx context.Context, document SourceDocument, markupJSON []byte) (RemoteWorkFile, error)
}

// AffinitySession pins a sequence of calls to one server node. The node is
// chosen by the first upload or conversion and never changes afterwards.
type AffinitySession interface {
	WorkFiles
	Converter
	MarkupBurner
	AffinityToken() string
}

// Client combines all PrizmDoc Server operations. Every call runs in a fresh
// affinity session.
type Client interface {
	Info
	WorkFiles
	Converter
	MarkupBurner
	NewAffinitySession() AffinitySession
}
