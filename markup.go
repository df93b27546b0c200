package client

import (
	"context"
	"encoding/json"
)

type markupBurnRequest struct {
	Input struct {
		DocumentFileID string `json:"documentFileId"`
		MarkupFileID   string `json:"markupFileId"`
	} `json:"input"`
}

type markupBurnOutput struct {
	Output struct {
		DocumentFileID string `json:"documentFileId"`
	} `json:"output"`
}

// BurnMarkup uploads markupJSON next to document, burns the markup into it
// and returns the resulting PDF.
func (s *session) BurnMarkup(ctx context.Context, document SourceDocument, markupJSON []byte) (RemoteWorkFile, error) {
	if len(markupJSON) == 0 {
		return RemoteWorkFile{}, ErrEmptyFileData
	}

	resolved, affinity, err := s.resolveSources(ctx, []SourceDocument{document})
	if err != nil {
		return RemoteWorkFile{}, err
	}

	markup, err := s.c.uploadWorkFile(ctx, markupJSON, "json", affinity)
	if err != nil {
		return RemoteWorkFile{}, err
	}

	var req markupBurnRequest
	req.Input.DocumentFileID = resolved[0].RemoteWorkFile.FileID
	req.Input.MarkupFileID = markup.FileID
	body, err := json.Marshal(req)
	if err != nil {
		return RemoteWorkFile{}, err
	}

	tc := translateContext{op: OperationSubmitMarkupBurn, sources: resolved}
	accepted, err := s.c.submitProcess(ctx, EndpointMarkupBurner, affinity, body, markupBurnTable, tc)
	if err != nil {
		return RemoteWorkFile{}, err
	}

	tc.op = OperationMarkupBurn
	final, err := s.c.awaitProcess(ctx, EndpointMarkupBurner+"/"+accepted.ProcessID, affinity, markupBurnTable, tc)
	if err != nil {
		return RemoteWorkFile{}, err
	}

	var out markupBurnOutput
	if err := json.Unmarshal(final, &out); err != nil || out.Output.DocumentFileID == "" {
		return RemoteWorkFile{}, errProtocol(OperationMarkupBurn, 200, final, "complete process has no output documentFileId")
	}

	return RemoteWorkFile{
		FileID:        out.Output.DocumentFileID,
		AffinityToken: affinity,
		FileExtension: FormatPDF.Extension(),
	}, nil
}
