package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type uploadResponse struct {
	FileID        string `json:"fileId"`
	FileExtension string `json:"fileExtension"`
	AffinityToken string `json:"affinityToken"`
}

// uploadWorkFile stores data on the server. A non-empty affinity pins the
// upload to that node.
func (c *client) uploadWorkFile(ctx context.Context, data []byte, fileExtension, affinity string) (RemoteWorkFile, error) {
	if len(data) == 0 {
		return RemoteWorkFile{}, ErrEmptyFileData
	}

	fileExtension = strings.TrimPrefix(fileExtension, ".")

	req, err := c.newRequest(ctx, affinity)
	if err != nil {
		return RemoteWorkFile{}, err
	}

	resp, err := req.
		SetHeader("Content-Type", "application/octet-stream").
		SetQueryParam("FileExtension", fileExtension).
		SetBody(data).
		Post(EndpointWorkFile)
	if err != nil {
		return RemoteWorkFile{}, fmt.Errorf("upload work file failed: %w", err)
	}

	if env, isErr := parseErrorEnvelope(resp.StatusCode(), resp.Status(), resp.Body()); isErr {
		return RemoteWorkFile{}, env.toError(OperationUpload, KindUnrecognized, "")
	}

	var result uploadResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil || result.FileID == "" {
		return RemoteWorkFile{}, errProtocol(OperationUpload, resp.StatusCode(), resp.Body(), "response has no fileId")
	}

	if result.FileExtension == "" {
		result.FileExtension = fileExtension
	}

	wf := RemoteWorkFile{
		FileID:        result.FileID,
		AffinityToken: result.AffinityToken,
		FileExtension: result.FileExtension,
	}
	c.logger.DebugContext(ctx, "uploaded work file",
		slog.String("file-id", wf.FileID),
		slog.String("affinity-token", wf.AffinityToken),
		slog.Int("bytes", len(data)),
	)
	return wf, nil
}

// downloadWorkFileTo streams the bytes of wf into dst.
func (c *client) downloadWorkFileTo(ctx context.Context, wf RemoteWorkFile, dst io.Writer) error {
	if wf.FileID == "" {
		return ErrEmptyFileID
	}
	if dst == nil {
		return ErrNilWriter
	}

	req, err := c.newRequest(ctx, wf.AffinityToken)
	if err != nil {
		return err
	}

	resp, err := req.
		SetDoNotParseResponse(true).
		Get(EndpointWorkFile + "/" + wf.FileID)
	if err != nil {
		return fmt.Errorf("download %s failed: %w", wf, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		raw, _ := io.ReadAll(body)
		env, _ := parseErrorEnvelope(resp.StatusCode(), resp.Status(), raw)
		if env.ErrorCode == "WorkFileDoesNotExist" || resp.StatusCode() == 404 {
			return env.toError(OperationDownload, KindRejected,
				fmt.Sprintf("Remote work file %s does not exist. It may have expired.", wf.FileID))
		}
		if env.ErrorCode == "" {
			return errStatus(OperationDownload, resp.StatusCode(), resp.Status())
		}
		return env.toError(OperationDownload, KindUnrecognized, "")
	}

	if _, err := io.Copy(dst, body); err != nil {
		return fmt.Errorf("download %s failed: %w", wf, err)
	}

	return nil
}

func (c *client) downloadWorkFile(ctx context.Context, wf RemoteWorkFile) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.downloadWorkFileTo(ctx, wf, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// saveWorkFile downloads wf into a local file, creating parent directories.
func (c *client) saveWorkFile(ctx context.Context, wf RemoteWorkFile, path string) error {
	if path == "" {
		return ErrEmptyFilePath
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create download dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if err := c.downloadWorkFileTo(ctx, wf, file); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

// readLocalFile reads a source file, reporting a missing file as ErrFileNotFound.
func readLocalFile(path string) ([]byte, error) {
	if path == "" {
		return nil, ErrEmptyFilePath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return data, nil
}

// checkLocalFile fails fast when a source file is missing.
func checkLocalFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	return nil
}

func extensionOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
