package client

import "encoding/json"

type conversionOutput struct {
	Output struct {
		Results []struct {
			FileID    string `json:"fileId"`
			ErrorCode string `json:"errorCode"`
			PageCount int    `json:"pageCount"`
			Sources   []struct {
				FileID string `json:"fileId"`
				Pages  string `json:"pages"`
			} `json:"sources"`
		} `json:"results"`
	} `json:"output"`
}

// assembleResults builds one ConversionResult per entry of output.results.
// Echoed sources are matched to the submitted ones by file id to recover
// their extension and affinity; output files take the batch affinity and the
// default extension of format.
func assembleResults(body []byte, sources []SourceDocument, format DestinationFormat, affinity string) ([]ConversionResult, error) {
	var parsed conversionOutput
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errProtocol(OperationConversion, 200, body, "decode output: %v", err)
	}
	if len(parsed.Output.Results) == 0 {
		return nil, errProtocol(OperationConversion, 200, body, "complete process has no results")
	}

	byFileID := make(map[string]RemoteWorkFile, len(sources))
	for _, src := range sources {
		if src.RemoteWorkFile != nil {
			if _, seen := byFileID[src.RemoteWorkFile.FileID]; !seen {
				byFileID[src.RemoteWorkFile.FileID] = *src.RemoteWorkFile
			}
		}
	}

	results := make([]ConversionResult, 0, len(parsed.Output.Results))
	for i, entry := range parsed.Output.Results {
		result := ConversionResult{
			Sources: make([]ConversionSourceDocument, 0, len(entry.Sources)),
		}
		for _, echoed := range entry.Sources {
			wf, ok := byFileID[echoed.FileID]
			if !ok {
				wf = RemoteWorkFile{FileID: echoed.FileID, AffinityToken: affinity}
			}
			result.Sources = append(result.Sources, ConversionSourceDocument{
				RemoteWorkFile: wf,
				Pages:          echoed.Pages,
			})
		}

		if entry.ErrorCode != "" {
			result.ErrorCode = entry.ErrorCode
			results = append(results, result)
			continue
		}

		if entry.FileID == "" {
			return nil, errProtocol(OperationConversion, 200, body, "result %d has neither fileId nor errorCode", i)
		}
		if entry.PageCount < 1 {
			return nil, errProtocol(OperationConversion, 200, body, "result %d has pageCount %d", i, entry.PageCount)
		}
		result.remoteWorkFile = &RemoteWorkFile{
			FileID:        entry.FileID,
			AffinityToken: affinity,
			FileExtension: format.Extension(),
		}
		result.PageCount = entry.PageCount
		results = append(results, result)
	}

	return results, nil
}
