package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeFile is a work file held by one fake node. Each line of the content is
// one page; a first line of the form "password=X" protects the document.
type fakeFile struct {
	data []byte
	ext  string
}

func (f fakeFile) password() (string, bool) {
	first, _, _ := strings.Cut(string(f.data), "\n")
	if pw, ok := strings.CutPrefix(first, "password="); ok {
		return pw, true
	}
	return "", false
}

func (f fakeFile) pages() []string {
	var pages []string
	for _, line := range strings.Split(string(f.data), "\n") {
		if line == "" || strings.HasPrefix(line, "password=") {
			continue
		}
		pages = append(pages, line)
	}
	return pages
}

type fakeProcess struct {
	polls    int
	terminal any
}

type fakeError struct {
	status int
	body   map[string]any
}

// fakeServer emulates a PrizmDoc Server cluster. Uploads without an affinity
// header are spread round-robin over the nodes.
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	nodes     []string
	next      int
	files     map[string]map[string]fakeFile
	processes map[string]*fakeProcess
	uploads   map[string]int
	downloads int
	requests  [][]byte
	apiKeys   []string

	// statusTokens records the affinity header of every process status request.
	statusTokens []string

	// rejectSubmit, when set, may reject a conversion submission.
	rejectSubmit func(req map[string]any) *fakeError
	// failJob, when set, may turn an accepted conversion into a failed process.
	failJob func(req map[string]any) map[string]any
	// pollsBeforeDone is how many status requests report "processing".
	pollsBeforeDone int
}

func newFakeServer(t *testing.T, nodes ...string) *fakeServer {
	t.Helper()
	if len(nodes) == 0 {
		nodes = []string{""}
	}
	fs := &fakeServer{
		t:               t,
		nodes:           nodes,
		files:           make(map[string]map[string]fakeFile),
		processes:       make(map[string]*fakeProcess),
		uploads:         make(map[string]int),
		pollsBeforeDone: 1,
	}
	for _, n := range nodes {
		fs.files[n] = make(map[string]fakeFile)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+EndpointWorkFile, fs.handleUpload)
	mux.HandleFunc("GET "+EndpointWorkFile+"/{id}", fs.handleDownload)
	mux.HandleFunc("POST "+EndpointContentConverters, fs.handleSubmitConversion)
	mux.HandleFunc("GET "+EndpointContentConverters+"/{id}", fs.handleProcess)
	mux.HandleFunc("POST "+EndpointMarkupBurner, fs.handleSubmitMarkupBurn)
	mux.HandleFunc("GET "+EndpointMarkupBurner+"/{id}", fs.handleProcess)

	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) client(opts ...Option) Client {
	base := []Option{
		WithBaseURL(fs.srv.URL),
		WithPollInterval(time.Millisecond),
		WithMaxPollInterval(5 * time.Millisecond),
	}
	return NewClient(append(base, opts...)...)
}

func (fs *fakeServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fs.t.Errorf("encode fake response: %v", err)
	}
}

func (fs *fakeServer) nodeFor(r *http.Request) string {
	if token := r.Header.Get(AffinityTokenHeader); token != "" {
		return token
	}
	node := fs.nodes[fs.next%len(fs.nodes)]
	fs.next++
	return node
}

// put stores a file directly on a node, bypassing the HTTP API.
func (fs *fakeServer) put(node, content, ext string) RemoteWorkFile {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	id := uuid.NewString()
	fs.files[node][id] = fakeFile{data: []byte(content), ext: ext}
	return RemoteWorkFile{FileID: id, AffinityToken: node, FileExtension: ext}
}

func (fs *fakeServer) content(wf RemoteWorkFile) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.files[wf.AffinityToken][wf.FileID]
	return string(f.data), ok
}

func (fs *fakeServer) uploadCount(node string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.uploads[node]
}

func (fs *fakeServer) lastRequest() map[string]any {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.requests) == 0 {
		return nil
	}
	var req map[string]any
	_ = json.Unmarshal(fs.requests[len(fs.requests)-1], &req)
	return req
}

func (fs *fakeServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	ext := r.URL.Query().Get("FileExtension")

	fs.mu.Lock()
	fs.apiKeys = append(fs.apiKeys, r.Header.Get(APIKeyHeader))
	node := fs.nodeFor(r)
	if _, ok := fs.files[node]; !ok {
		fs.mu.Unlock()
		fs.writeJSON(w, 480, map[string]any{"errorCode": "InvalidAffinityToken"})
		return
	}
	id := uuid.NewString()
	fs.files[node][id] = fakeFile{data: data, ext: ext}
	fs.uploads[node]++
	fs.mu.Unlock()

	body := map[string]any{"fileId": id, "fileExtension": ext}
	if node != "" {
		body["affinityToken"] = node
	}
	fs.writeJSON(w, http.StatusOK, body)
}

func (fs *fakeServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	node := r.Header.Get(AffinityTokenHeader)
	f, ok := fs.files[node][r.PathValue("id")]
	fs.downloads++
	fs.mu.Unlock()

	if !ok {
		fs.writeJSON(w, http.StatusNotFound, map[string]any{"errorCode": "WorkFileDoesNotExist"})
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(f.data)
}

type fakeSource struct {
	FileID   string  `json:"fileId"`
	Pages    string  `json:"pages"`
	Password *string `json:"password,omitempty"`
}

type fakeConversionRequest struct {
	Input struct {
		Sources []fakeSource `json:"sources"`
		Dest    struct {
			Format      string `json:"format"`
			PDFOptions  *struct {
				ForceOneFilePerPage bool `json:"forceOneFilePerPage"`
			} `json:"pdfOptions"`
			TIFFOptions *struct {
				ForceOneFilePerPage bool `json:"forceOneFilePerPage"`
			} `json:"tiffOptions"`
		} `json:"dest"`
	} `json:"input"`
}

func (fs *fakeServer) handleSubmitConversion(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	node := r.Header.Get(AffinityTokenHeader)

	var generic map[string]any
	var req fakeConversionRequest
	if json.Unmarshal(raw, &generic) != nil || json.Unmarshal(raw, &req) != nil {
		fs.writeJSON(w, 480, map[string]any{"errorCode": "InvalidJson"})
		return
	}

	fs.mu.Lock()
	fs.requests = append(fs.requests, raw)
	fs.mu.Unlock()

	if fs.rejectSubmit != nil {
		if rej := fs.rejectSubmit(generic); rej != nil {
			fs.writeJSON(w, rej.status, rej.body)
			return
		}
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	files := make([]fakeFile, len(req.Input.Sources))
	for i, src := range req.Input.Sources {
		f, ok := fs.files[node][src.FileID]
		if !ok {
			fs.writeJSON(w, 480, map[string]any{
				"errorCode":    "WorkFileDoesNotExist",
				"errorDetails": map[string]any{"in": "body", "at": fmt.Sprintf("input.sources[%d].fileId", i)},
			})
			return
		}
		files[i] = f
	}

	format := req.Input.Dest.Format
	singlePage := format == "jpeg" || format == "png" || format == "svg"
	echoed := make([]fakeSource, len(req.Input.Sources))
	copy(echoed, req.Input.Sources)
	if singlePage {
		for i := range echoed {
			echoed[i].Pages = ""
		}
	}

	id := uuid.NewString()
	proc := &fakeProcess{}
	if fs.failJob != nil {
		if failed := fs.failJob(generic); failed != nil {
			proc.terminal = failed
		}
	}
	if proc.terminal == nil {
		proc.terminal = fs.convert(node, req, files, singlePage)
	}
	fs.processes[id] = proc

	fs.writeJSON(w, http.StatusOK, map[string]any{
		"processId": id,
		"state":     StateProcessing,
		"input":     map[string]any{"sources": echoed, "dest": generic["input"].(map[string]any)["dest"]},
	})
}

// convert computes the terminal state of a conversion. Called with mu held.
func (fs *fakeServer) convert(node string, req fakeConversionRequest, files []fakeFile, singlePage bool) map[string]any {
	onePerPage := singlePage ||
		(req.Input.Dest.PDFOptions != nil && req.Input.Dest.PDFOptions.ForceOneFilePerPage) ||
		(req.Input.Dest.TIFFOptions != nil && req.Input.Dest.TIFFOptions.ForceOneFilePerPage)

	for i, src := range req.Input.Sources {
		if want, ok := files[i].password(); ok {
			got := ""
			if src.Password != nil {
				got = *src.Password
			}
			if got != want {
				return map[string]any{
					"state":     StateError,
					"errorCode": "CouldNotConvert",
					"output": map[string]any{"results": []any{map[string]any{
						"errorCode": "InvalidPassword",
						"sources":   []fakeSource{src},
					}}},
				}
			}
		}
	}

	var results []any
	var combined []string
	var combinedSources []map[string]any
	for i, src := range req.Input.Sources {
		all := files[i].pages()
		numbers := parseFakePages(src.Pages, len(all))
		if singlePage || src.Pages == "" {
			numbers = parseFakePages("", len(all))
		}
		var selected []string
		for _, n := range numbers {
			if onePerPage {
				sources := []map[string]any{{"fileId": src.FileID, "pages": strconv.Itoa(n)}}
				if n > len(all) {
					results = append(results, map[string]any{"errorCode": "NoSuchPage", "sources": sources})
					continue
				}
				results = append(results, fs.output(node, req.Input.Dest.Format, []string{all[n-1]}, sources))
				continue
			}
			if n <= len(all) {
				selected = append(selected, all[n-1])
			}
		}
		if !onePerPage {
			pages := src.Pages
			if pages == "" {
				pages = fmt.Sprintf("1-%d", len(all))
			}
			combined = append(combined, selected...)
			combinedSources = append(combinedSources, map[string]any{"fileId": src.FileID, "pages": pages})
		}
	}
	if !onePerPage {
		results = append(results, fs.output(node, req.Input.Dest.Format, combined, combinedSources))
	}

	return map[string]any{
		"state":  StateComplete,
		"output": map[string]any{"results": results},
	}
}

// output stores a result file. Called with mu held.
func (fs *fakeServer) output(node, format string, pages []string, sources []map[string]any) map[string]any {
	id := uuid.NewString()
	fs.files[node][id] = fakeFile{data: []byte(strings.Join(pages, "\n") + "\n"), ext: format}
	return map[string]any{"fileId": id, "pageCount": len(pages), "sources": sources}
}

// parseFakePages expands "1,3-4" into page numbers; empty means every page.
func parseFakePages(expr string, total int) []int {
	if expr == "" {
		out := make([]int, total)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	var out []int
	for _, part := range strings.Split(expr, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		start, _ := strconv.Atoi(lo)
		end := start
		if isRange {
			end, _ = strconv.Atoi(hi)
		}
		for n := start; n <= end; n++ {
			out = append(out, n)
		}
	}
	return out
}

func (fs *fakeServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	proc, ok := fs.processes[r.PathValue("id")]
	if ok {
		proc.polls++
	}
	fs.statusTokens = append(fs.statusTokens, r.Header.Get(AffinityTokenHeader))
	fs.mu.Unlock()

	if !ok {
		fs.writeJSON(w, http.StatusNotFound, map[string]any{"errorCode": "ProcessNotFound"})
		return
	}
	if proc.polls <= fs.pollsBeforeDone {
		fs.writeJSON(w, http.StatusOK, map[string]any{"processId": r.PathValue("id"), "state": StateProcessing, "percentComplete": 50})
		return
	}
	fs.writeJSON(w, http.StatusOK, proc.terminal)
}

func (fs *fakeServer) handleSubmitMarkupBurn(w http.ResponseWriter, r *http.Request) {
	var req markupBurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fs.writeJSON(w, 480, map[string]any{"errorCode": "InvalidJson"})
		return
	}
	node := r.Header.Get(AffinityTokenHeader)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, ok := fs.files[node][req.Input.DocumentFileID]
	if !ok {
		fs.writeJSON(w, 480, map[string]any{
			"errorCode":    "WorkFileDoesNotExist",
			"errorDetails": map[string]any{"in": "body", "at": "input.documentFileId"},
		})
		return
	}
	markup, ok := fs.files[node][req.Input.MarkupFileID]
	if !ok {
		fs.writeJSON(w, 480, map[string]any{
			"errorCode":    "WorkFileDoesNotExist",
			"errorDetails": map[string]any{"in": "body", "at": "input.markupFileId"},
		})
		return
	}

	id := uuid.NewString()
	proc := &fakeProcess{}
	if !json.Valid(markup.data) {
		proc.terminal = map[string]any{"processId": id, "state": StateError, "errorCode": "InvalidMarkup"}
	} else {
		outID := uuid.NewString()
		burned := append(append([]byte{}, doc.data...), []byte("burned\n")...)
		fs.files[node][outID] = fakeFile{data: burned, ext: "pdf"}
		proc.terminal = map[string]any{"processId": id, "state": StateComplete, "output": map[string]any{"documentFileId": outID}}
	}
	fs.processes[id] = proc

	fs.writeJSON(w, http.StatusOK, map[string]any{"processId": id, "state": StateProcessing})
}
