package client

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// workFileStore is the part of the transport the affinity pass needs.
type workFileStore interface {
	uploadWorkFile(ctx context.Context, data []byte, fileExtension, affinity string) (RemoteWorkFile, error)
	downloadWorkFile(ctx context.Context, wf RemoteWorkFile) ([]byte, error)
}

// affinityPass places a batch of sources on one server node.
type affinityPass struct {
	store   workFileStore
	workers int
	logger  *slog.Logger
}

// majorityAffinity returns the most common non-empty affinity token among
// sources which already reference a work file. Ties go to the token seen first.
func majorityAffinity(sources []SourceDocument) (string, bool) {
	counts := make(map[string]int)
	var order []string
	for _, src := range sources {
		if src.RemoteWorkFile == nil || src.RemoteWorkFile.AffinityToken == "" {
			continue
		}
		token := src.RemoteWorkFile.AffinityToken
		if counts[token] == 0 {
			order = append(order, token)
		}
		counts[token]++
	}

	best, bestCount := "", 0
	for _, token := range order {
		if counts[token] > bestCount {
			best, bestCount = token, counts[token]
		}
	}
	return best, bestCount > 0
}

// ensureSingleAffinity returns copies of sources which all reference work
// files on one node, together with that node's affinity token. Inputs are not
// modified. sessionAffinity is used when no source references a work file yet;
// when it is empty too, the first source is uploaded on its own and the node
// it lands on is chosen.
func (p affinityPass) ensureSingleAffinity(ctx context.Context, sessionAffinity string, sources []SourceDocument) ([]SourceDocument, string, error) {
	if len(sources) == 0 {
		return nil, "", ErrNoSources
	}
	for i, src := range sources {
		if err := src.validate(); err != nil {
			return nil, "", fmt.Errorf("source document at index %d: %w", i, err)
		}
		if src.LocalFilePath != "" {
			if err := checkLocalFile(src.LocalFilePath); err != nil {
				return nil, "", err
			}
		}
	}

	resolved := make([]SourceDocument, len(sources))
	copy(resolved, sources)

	affinity, found := majorityAffinity(sources)
	start := 0
	if !found {
		hasWorkFile := false
		for _, src := range sources {
			if src.RemoteWorkFile != nil {
				hasWorkFile = true
				break
			}
		}
		switch {
		case sessionAffinity != "" || hasWorkFile:
			affinity = sessionAffinity
		default:
			wf, err := p.uploadLocal(ctx, sources[0], "")
			if err != nil {
				return nil, "", err
			}
			resolved[0].RemoteWorkFile = &wf
			affinity = wf.AffinityToken
			start = 1
		}
	}

	p.logger.DebugContext(ctx, "chose affinity for batch",
		slog.String("affinity-token", affinity),
		slog.Int("sources", len(sources)),
	)

	eg, egCtx := errgroup.WithContext(ctx)
	if p.workers > 0 {
		eg.SetLimit(p.workers)
	}

	for i := start; i < len(sources); i++ {
		src := sources[i]
		switch {
		case src.RemoteWorkFile == nil:
			eg.Go(func() error {
				wf, err := p.uploadLocal(egCtx, src, affinity)
				if err != nil {
					return err
				}
				resolved[i].RemoteWorkFile = &wf
				return nil
			})
		case src.RemoteWorkFile.AffinityToken == "" || src.RemoteWorkFile.AffinityToken == affinity:
			wf := *src.RemoteWorkFile
			resolved[i].RemoteWorkFile = &wf
		default:
			eg.Go(func() error {
				wf, err := p.moveWorkFile(egCtx, *src.RemoteWorkFile, affinity)
				if err != nil {
					return err
				}
				resolved[i].RemoteWorkFile = &wf
				return nil
			})
		}
	}

	if err := eg.Wait(); err != nil {
		return nil, "", err
	}

	return resolved, affinity, nil
}

func (p affinityPass) uploadLocal(ctx context.Context, src SourceDocument, affinity string) (RemoteWorkFile, error) {
	data, err := readLocalFile(src.LocalFilePath)
	if err != nil {
		return RemoteWorkFile{}, err
	}
	wf, err := p.store.uploadWorkFile(ctx, data, extensionOf(src.LocalFilePath), affinity)
	if err != nil {
		return RemoteWorkFile{}, fmt.Errorf("upload %s: %w", src.LocalFilePath, err)
	}
	return wf, nil
}

// moveWorkFile copies wf onto the node identified by affinity. The content is
// preserved; the returned work file has a new id.
func (p affinityPass) moveWorkFile(ctx context.Context, wf RemoteWorkFile, affinity string) (RemoteWorkFile, error) {
	data, err := p.store.downloadWorkFile(ctx, wf)
	if err != nil {
		return RemoteWorkFile{}, fmt.Errorf("%s %s: %w", OperationReuploadWorkFile, wf.FileID, err)
	}
	moved, err := p.store.uploadWorkFile(ctx, data, wf.FileExtension, affinity)
	if err != nil {
		return RemoteWorkFile{}, fmt.Errorf("%s %s: %w", OperationReuploadWorkFile, wf.FileID, err)
	}
	p.logger.DebugContext(ctx, "moved work file to batch affinity",
		slog.String("from-file-id", wf.FileID),
		slog.String("from-affinity-token", wf.AffinityToken),
		slog.String("file-id", moved.FileID),
		slog.String("affinity-token", moved.AffinityToken),
	)
	return moved, nil
}
