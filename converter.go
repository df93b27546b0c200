package client

import (
	"context"
	"io"
)

// NewAffinitySession returns a session whose calls all run on one server node.
func (c *client) NewAffinitySession() AffinitySession {
	return c.newSession()
}

// Upload stores data on whichever node the server picks.
func (c *client) Upload(ctx context.Context, data []byte, fileExtension string) (RemoteWorkFile, error) {
	return c.newSession().Upload(ctx, data, fileExtension)
}

// UploadReader reads r fully and stores it on the server.
func (c *client) UploadReader(ctx context.Context, r io.Reader, fileExtension string) (RemoteWorkFile, error) {
	return c.newSession().UploadReader(ctx, r, fileExtension)
}

// UploadFile stores a local file on the server.
func (c *client) UploadFile(ctx context.Context, path string) (RemoteWorkFile, error) {
	return c.newSession().UploadFile(ctx, path)
}

// Download returns the bytes of a work file.
func (c *client) Download(ctx context.Context, wf RemoteWorkFile) ([]byte, error) {
	return c.downloadWorkFile(ctx, wf)
}

// DownloadTo streams the bytes of a work file into dst.
func (c *client) DownloadTo(ctx context.Context, wf RemoteWorkFile, dst io.Writer) error {
	return c.downloadWorkFileTo(ctx, wf, dst)
}

// SaveToFile downloads a work file to a local path, overwriting it.
func (c *client) SaveToFile(ctx context.Context, wf RemoteWorkFile, path string) error {
	return c.saveWorkFile(ctx, wf, path)
}

// Convert runs a content conversion in a fresh affinity session.
func (c *client) Convert(ctx context.Context, sources []SourceDocument, dest DestinationOptions) ([]ConversionResult, error) {
	return c.newSession().Convert(ctx, sources, dest)
}

// ConvertToPDF converts one source to a single PDF.
func (c *client) ConvertToPDF(ctx context.Context, source SourceDocument) (ConversionResult, error) {
	return c.newSession().ConvertToPDF(ctx, source)
}

// CombineToPDF merges the sources, in order, into one PDF.
func (c *client) CombineToPDF(ctx context.Context, sources []SourceDocument) (ConversionResult, error) {
	return c.newSession().CombineToPDF(ctx, sources)
}

// OCRToPDF converts one source to a searchable PDF.
func (c *client) OCRToPDF(ctx context.Context, source SourceDocument, ocr OCROptions) (ConversionResult, error) {
	return c.newSession().OCRToPDF(ctx, source, ocr)
}

// GetConversionStatus fetches the current state of a content conversion
// process on the node named by affinityToken.
func (c *client) GetConversionStatus(ctx context.Context, processID, affinityToken string) (*ProcessStatus, error) {
	return c.newSession().GetConversionStatus(ctx, processID, affinityToken)
}

// BurnMarkup burns markup into a document in a fresh affinity session.
func (c *client) BurnMarkup(ctx context.Context, document SourceDocument, markupJSON []byte) (RemoteWorkFile, error) {
	return c.newSession().BurnMarkup(ctx, document, markupJSON)
}
