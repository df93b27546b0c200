package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// processResponse is a raw process status response.
type processResponse struct {
	StatusCode int
	Status     string
	Body       []byte
}

type submitResponse struct {
	ProcessID string `json:"processId"`
	State     string `json:"state"`
	Input     struct {
		Sources []struct {
			FileID string `json:"fileId"`
			Pages  string `json:"pages"`
		} `json:"sources"`
	} `json:"input"`
}

// submitProcess posts a process request and returns the accepted process.
// Rejections are translated with table.
func (c *client) submitProcess(ctx context.Context, endpoint, affinity string, body []byte, table translationTable, tc translateContext) (*submitResponse, error) {
	req, err := c.newRequest(ctx, affinity)
	if err != nil {
		return nil, err
	}

	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", tc.op, err)
	}

	if env, isErr := parseErrorEnvelope(resp.StatusCode(), resp.Status(), resp.Body()); isErr {
		return nil, translateRejection(table, env, tc)
	}

	var result submitResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, errProtocol(tc.op, resp.StatusCode(), resp.Body(), "decode response: %v", err)
	}
	if result.ProcessID == "" {
		return nil, errProtocol(tc.op, resp.StatusCode(), resp.Body(), "response has no processId")
	}

	c.logger.DebugContext(ctx, "process accepted",
		slog.String("operation", string(tc.op)),
		slog.String("process-id", result.ProcessID),
		slog.String("affinity-token", affinity),
	)
	return &result, nil
}

// submitConversion starts a content conversion and returns its process id.
func (c *client) submitConversion(ctx context.Context, affinity string, body []byte, tc translateContext) (string, error) {
	accepted, err := c.submitProcess(ctx, EndpointContentConverters, affinity, body, conversionSubmitTable, tc)
	if err != nil {
		return "", err
	}
	if err := checkPagesHonored(accepted, tc); err != nil {
		return "", err
	}
	return accepted.ProcessID, nil
}

// checkPagesHonored fails when the server dropped a requested page range.
// Servers ignore per-source pages for formats other than PDF and TIFF.
func checkPagesHonored(accepted *submitResponse, tc translateContext) error {
	if tc.dest.Format.honorsPageRanges() {
		return nil
	}
	for i, src := range tc.sources {
		if src.Pages == "" || i >= len(accepted.Input.Sources) {
			continue
		}
		if accepted.Input.Sources[i].Pages != "" {
			continue
		}
		return &Error{
			Op:        tc.op,
			Kind:      KindRejected,
			ErrorCode: "PagesNotHonored",
			At:        fmt.Sprintf("input.sources[%d].pages", i),
			Message: fmt.Sprintf("Remote server ignored the pages requested for %s when converting to %s. Convert to PDF first and then convert the resulting pages.",
				describeSource(tc.sources, i), formatName(tc.dest.Format)),
			err: ErrPagesNotHonored,
		}
	}
	return nil
}

// getProcess fetches the status of a process once.
func (c *client) getProcess(ctx context.Context, path, affinity string) (*processResponse, error) {
	req, err := c.newRequest(ctx, affinity)
	if err != nil {
		return nil, err
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("get process %s failed: %w", path, err)
	}

	return &processResponse{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       resp.Body(),
	}, nil
}

// awaitProcess polls a process until it reaches a terminal state and returns
// the body of the complete state. Failures are translated with table.
func (c *client) awaitProcess(ctx context.Context, path, affinity string, table translationTable, tc translateContext) (json.RawMessage, error) {
	fetch := func(ctx context.Context, path string) (*processResponse, error) {
		return c.getProcess(ctx, path, affinity)
	}

	final, err := waitWithPolling(ctx, path, c.pollPolicy(), tc.op, fetch, func(resp *processResponse) (bool, error) {
		env, isErr := parseErrorEnvelope(resp.StatusCode, resp.Status, resp.Body)

		var status ProcessStatus
		if err := json.Unmarshal(resp.Body, &status); err != nil && !isErr {
			return false, errProtocol(tc.op, resp.StatusCode, resp.Body, "decode status: %v", err)
		}

		if isErr || status.State == StateError {
			return false, translateJobFailure(table, env, tc)
		}

		switch status.State {
		case StateComplete:
			return true, nil
		case StateProcessing:
			return false, nil
		default:
			return false, errProtocol(tc.op, resp.StatusCode, resp.Body, "process ended in unexpected state %q: %s", status.State, resp.Body)
		}
	})
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "process complete",
		slog.String("operation", string(tc.op)),
		slog.String("path", path),
	)
	return final.Body, nil
}

func decodeProcessStatus(body []byte) (*ProcessStatus, error) {
	var status ProcessStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, err
	}
	status.Raw = append(json.RawMessage(nil), body...)
	return &status, nil
}
