package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// session is the single conversion orchestrator. Client methods run each call
// in a new session; AffinitySession callers reuse one.
type session struct {
	c *client

	// pinMu serializes calls until the session is pinned, so the first
	// upload alone chooses the node.
	pinMu         sync.Mutex
	mu            sync.Mutex
	affinityToken string
}

var _ AffinitySession = (*session)(nil)

func (c *client) newSession() *session {
	return &session{c: c}
}

// AffinityToken returns the token of the node this session is pinned to, or
// "" before the first upload or on single-node servers.
func (s *session) AffinityToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.affinityToken
}

// adoptAffinity pins the session to token unless it is already pinned.
func (s *session) adoptAffinity(token string) {
	if token == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.affinityToken == "" {
		s.affinityToken = token
	}
}

func (s *session) affinityPass() affinityPass {
	return affinityPass{
		store:   s.c,
		workers: s.c.uploadWorkers,
		logger:  s.c.logger,
	}
}

// pinned runs fn with the session's token and adopts the token fn chose.
// Until the session is pinned, concurrent callers wait for each other.
func (s *session) pinned(fn func(token string) (string, error)) error {
	if token := s.AffinityToken(); token != "" {
		_, err := fn(token)
		return err
	}

	s.pinMu.Lock()
	defer s.pinMu.Unlock()
	chosen, err := fn(s.AffinityToken())
	if err != nil {
		return err
	}
	s.adoptAffinity(chosen)
	return nil
}

// resolveSources places sources on one node and pins the session to it.
func (s *session) resolveSources(ctx context.Context, sources []SourceDocument) ([]SourceDocument, string, error) {
	var (
		resolved []SourceDocument
		affinity string
	)
	err := s.pinned(func(token string) (string, error) {
		var err error
		resolved, affinity, err = s.affinityPass().ensureSingleAffinity(ctx, token, sources)
		return affinity, err
	})
	if err != nil {
		return nil, "", err
	}
	return resolved, affinity, nil
}

// Upload stores data on the session's node.
func (s *session) Upload(ctx context.Context, data []byte, fileExtension string) (RemoteWorkFile, error) {
	var wf RemoteWorkFile
	err := s.pinned(func(token string) (string, error) {
		var err error
		wf, err = s.c.uploadWorkFile(ctx, data, fileExtension, token)
		return wf.AffinityToken, err
	})
	if err != nil {
		return RemoteWorkFile{}, err
	}
	return wf, nil
}

// UploadReader reads r fully and stores it on the session's node.
func (s *session) UploadReader(ctx context.Context, r io.Reader, fileExtension string) (RemoteWorkFile, error) {
	if r == nil {
		return RemoteWorkFile{}, ErrNilReader
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return RemoteWorkFile{}, fmt.Errorf("read upload data: %w", err)
	}
	return s.Upload(ctx, data, fileExtension)
}

// UploadFile stores a local file, using its extension as the file type.
func (s *session) UploadFile(ctx context.Context, path string) (RemoteWorkFile, error) {
	data, err := readLocalFile(path)
	if err != nil {
		return RemoteWorkFile{}, err
	}
	return s.Upload(ctx, data, extensionOf(path))
}

func (s *session) Download(ctx context.Context, wf RemoteWorkFile) ([]byte, error) {
	return s.c.downloadWorkFile(ctx, wf)
}

func (s *session) DownloadTo(ctx context.Context, wf RemoteWorkFile, dst io.Writer) error {
	return s.c.downloadWorkFileTo(ctx, wf, dst)
}

func (s *session) SaveToFile(ctx context.Context, wf RemoteWorkFile, path string) error {
	return s.c.saveWorkFile(ctx, wf, path)
}

// Convert uploads or moves the sources onto one node, runs a content
// conversion and returns its results in server order. Results may be a mix
// of successes and per-page errors.
func (s *session) Convert(ctx context.Context, sources []SourceDocument, dest DestinationOptions) ([]ConversionResult, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if dest.Format == "" {
		return nil, ErrEmptyDestination
	}

	resolved, affinity, err := s.resolveSources(ctx, sources)
	if err != nil {
		return nil, err
	}

	body, err := buildConversionRequest(resolved, dest)
	if err != nil {
		return nil, err
	}

	tc := translateContext{op: OperationSubmitConversion, sources: resolved, dest: dest}
	processID, err := s.c.submitConversion(ctx, affinity, body, tc)
	if err != nil {
		return nil, err
	}

	tc.op = OperationConversion
	final, err := s.c.awaitProcess(ctx, EndpointContentConverters+"/"+processID, affinity, conversionJobTable, tc)
	if err != nil {
		return nil, err
	}

	results, err := assembleResults(final, resolved, dest.Format, affinity)
	if err != nil {
		return nil, err
	}

	s.c.logger.DebugContext(ctx, "conversion finished",
		slog.String("process-id", processID),
		slog.String("format", string(dest.Format)),
		slog.Int("results", len(results)),
	)
	return results, nil
}

// ConvertToPDF converts one source to a single PDF.
func (s *session) ConvertToPDF(ctx context.Context, source SourceDocument) (ConversionResult, error) {
	return s.convertToSingle(ctx, []SourceDocument{source}, NewDestinationOptions(FormatPDF))
}

// CombineToPDF merges the sources, in order, into one PDF.
func (s *session) CombineToPDF(ctx context.Context, sources []SourceDocument) (ConversionResult, error) {
	return s.convertToSingle(ctx, sources, NewDestinationOptions(FormatPDF))
}

// OCRToPDF converts one source to a searchable PDF.
func (s *session) OCRToPDF(ctx context.Context, source SourceDocument, ocr OCROptions) (ConversionResult, error) {
	if ocr.Language == "" {
		ocr.Language = "english"
	}
	dest := NewDestinationOptions(FormatPDF)
	dest.PDF = &PDFDestinationOptions{OCR: &ocr}
	return s.convertToSingle(ctx, []SourceDocument{source}, dest)
}

func (s *session) convertToSingle(ctx context.Context, sources []SourceDocument, dest DestinationOptions) (ConversionResult, error) {
	results, err := s.Convert(ctx, sources, dest)
	if err != nil {
		return ConversionResult{}, err
	}
	if len(results) != 1 {
		return ConversionResult{}, fmt.Errorf("%w: expected 1, got %d", ErrUnexpectedResultCount, len(results))
	}
	return results[0], nil
}

// GetConversionStatus fetches the current state of a content conversion
// process without waiting. An empty affinityToken falls back to the
// session's node.
func (s *session) GetConversionStatus(ctx context.Context, processID, affinityToken string) (*ProcessStatus, error) {
	if processID == "" {
		return nil, ErrEmptyProcessID
	}
	if affinityToken == "" {
		affinityToken = s.AffinityToken()
	}

	resp, err := s.c.getProcess(ctx, EndpointContentConverters+"/"+processID, affinityToken)
	if err != nil {
		return nil, err
	}

	env, isErr := parseErrorEnvelope(resp.StatusCode, resp.Status, resp.Body)
	if isErr && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return nil, env.toError(OperationGetConversion, KindUnrecognized, "")
	}

	status, err := decodeProcessStatus(resp.Body)
	if err != nil {
		return nil, errProtocol(OperationGetConversion, resp.StatusCode, resp.Body, "decode status: %v", err)
	}
	return status, nil
}
