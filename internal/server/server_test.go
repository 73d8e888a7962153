package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"audioconv/internal/api"
	"audioconv/internal/config"
	"audioconv/internal/convert"
	"audioconv/internal/logging"
	"audioconv/internal/server"
	"audioconv/internal/services"
	"audioconv/internal/testsupport"
	"audioconv/internal/uploads"
)

const ffmpegWritesOutput = `for last; do :; done
case "$last" in
  *.mp3|*.wav|*.ogg|*.m4a|*.flac) printf 'converted audio' > "$last" ;;
esac
`

const ffprobeReportsAudio = `echo '{"streams":[{"index":0,"codec_type":"audio","codec_name":"mp3"}],"format":{"duration":"12.5"}}'
`

const ffmpegFails = `echo "Invalid data found when processing input" >&2
exit 1
`

type fixture struct {
	cfg     *config.Config
	handler http.Handler
	srv     *server.Server
}

func newFixture(t *testing.T, ffmpegScript string, opts ...testsupport.ConfigOption) fixture {
	t.Helper()
	opts = append(opts, testsupport.WithStubbedTools(ffmpegScript, ffprobeReportsAudio))
	cfg := testsupport.NewConfig(t, opts...)

	store, err := uploads.NewStore(cfg.Paths.UploadDir, logging.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	cat := testsupport.MustOpenCatalog(t, cfg)
	svc := api.NewConversionService(store, convert.NewDispatcher(cfg),
		api.WithCatalog(cat),
		api.WithDefaultFormat(convert.Format(cfg.Conversion.DefaultFormat)),
	)
	srv := server.New(cfg, svc, logging.NewNop(), server.WithOutputs(api.NewOutputsService(cat)))
	return fixture{cfg: cfg, handler: srv.Handler(), srv: srv}
}

type part struct {
	field    string
	filename string
	content  []byte
	isFile   bool
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		var (
			w   io.Writer
			err error
		)
		if p.isFile {
			w, err = mw.CreateFormFile(p.field, p.filename)
		} else {
			w, err = mw.CreateFormField(p.field)
		}
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := w.Write(p.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (f fixture) upload(t *testing.T, parts ...part) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, parts...)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

func uploadEntries(t *testing.T, cfg *config.Config) []string {
	t.Helper()
	list, err := os.ReadDir(cfg.Paths.UploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	names := make([]string, 0, len(list))
	for _, e := range list {
		names = append(names, e.Name())
	}
	return names
}

func TestUploadAAXThenDownload(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	rec := f.upload(t,
		part{field: "file", filename: "book.aax", content: []byte("drm audio"), isFile: true},
		part{field: "activation_bytes", content: []byte("1a2b3c4d")},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp api.UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if !resp.Success || !strings.HasPrefix(resp.DownloadURL, "/download/") || !strings.HasSuffix(resp.DownloadURL, "_book.mp3") {
		t.Fatalf("unexpected upload response: %+v", resp)
	}

	names := uploadEntries(t, f.cfg)
	if len(names) != 1 || !strings.HasSuffix(names[0], ".mp3") {
		t.Fatalf("expected only the converted output to remain, got %v", names)
	}

	dl := f.get(t, resp.DownloadURL)
	if dl.Code != http.StatusOK {
		t.Fatalf("download status = %d", dl.Code)
	}
	if got := dl.Body.String(); got != "converted audio" {
		t.Fatalf("download body = %q", got)
	}
	disposition := dl.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disposition, "attachment") || !strings.Contains(disposition, names[0]) {
		t.Fatalf("unexpected Content-Disposition %q", disposition)
	}

	list := f.get(t, "/api/conversions?status=converted")
	var listing api.ConversionListResponse
	if err := json.Unmarshal(list.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Items) != 1 || listing.Items[0].DownloadCount != 1 {
		t.Fatalf("expected one converted row downloaded once, got %+v", listing.Items)
	}
}

func TestUploadStandardFormatSelection(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	rec := f.upload(t,
		part{field: "file", filename: "Morning Song.wav", content: []byte("RIFF"), isFile: true},
		part{field: "format", content: []byte("flac")},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Morning_Song.flac") {
		t.Fatalf("expected sanitized flac download, got %s", rec.Body.String())
	}
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	rec := f.upload(t, part{field: "file", filename: "notes.txt", content: []byte("hello"), isFile: true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "File type not allowed" {
		t.Fatalf("error = %q", msg)
	}
	if names := uploadEntries(t, f.cfg); len(names) != 0 {
		t.Fatalf("expected nothing persisted, got %v", names)
	}
}

func TestUploadMissingFilePart(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	rec := f.upload(t, part{field: "format", content: []byte("mp3")})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "No file part" {
		t.Fatalf("error = %q", msg)
	}
}

func TestUploadEmptyFilename(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	rec := f.upload(t, part{field: "file", filename: "", isFile: true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "No selected file" {
		t.Fatalf("error = %q", msg)
	}
}

func TestUploadNotMultipart(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("raw"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadInvalidActivationKey(t *testing.T) {
	for _, key := range []string{"abc", "zzzz-zzzz", "abcdefé"} {
		t.Run(key, func(t *testing.T) {
			f := newFixture(t, ffmpegWritesOutput)

			rec := f.upload(t,
				part{field: "file", filename: "book.aax", content: []byte("drm"), isFile: true},
				part{field: "activation_bytes", content: []byte(key)},
			)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if msg := decodeError(t, rec); msg != "Invalid activation bytes format" {
				t.Fatalf("error = %q", msg)
			}
			// ffmpeg never ran, so only the upload itself is on disk.
			if names := uploadEntries(t, f.cfg); len(names) != 1 || !strings.HasSuffix(names[0], "_book.aax") {
				t.Fatalf("expected only the upload, got %v", names)
			}
		})
	}
}

func TestUploadConversionFailureReportsDiagnostics(t *testing.T) {
	f := newFixture(t, ffmpegFails)

	rec := f.upload(t,
		part{field: "file", filename: "book.aax", content: []byte("drm"), isFile: true},
		part{field: "activation_bytes", content: []byte("1a2b3c4d")},
	)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	msg := decodeError(t, rec)
	if !strings.HasPrefix(msg, "Conversion failed: ") || !strings.Contains(msg, "Invalid data found") {
		t.Fatalf("error = %q", msg)
	}
	if strings.Contains(msg, "1a2b3c4d") {
		t.Fatalf("activation key leaked into response: %q", msg)
	}
	if names := uploadEntries(t, f.cfg); len(names) != 1 || !strings.HasSuffix(names[0], "_book.aax") {
		t.Fatalf("expected the failed upload to remain, got %v", names)
	}
}

func TestUploadTooLarge(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput, testsupport.WithMaxUploadMB(1))

	source := filepath.Join(t.TempDir(), "big.wav")
	testsupport.WriteFile(t, source, 2*1024*1024)
	content, err := os.ReadFile(source)
	if err != nil {
		t.Fatalf("read source: %v", err)
	}

	rec := f.upload(t, part{field: "file", filename: "big.wav", content: content, isFile: true})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "File too large" {
		t.Fatalf("error = %q", msg)
	}
	if names := uploadEntries(t, f.cfg); len(names) != 0 {
		t.Fatalf("expected nothing persisted, got %v", names)
	}
}

func TestUploadRejectsGet(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)
	if rec := f.get(t, "/upload"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestDownloadServesAnyFileInUploadDir(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)
	if err := os.WriteFile(filepath.Join(f.cfg.Paths.UploadDir, "foreign.ogg"), []byte("ogg"), 0o644); err != nil {
		t.Fatalf("write foreign file: %v", err)
	}

	rec := f.get(t, "/download/foreign.ogg")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "ogg") {
		t.Fatalf("unexpected Content-Type %q", ct)
	}
}

func TestDownloadNotFound(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	outside := filepath.Join(testsupport.BaseDir(f.cfg), "secret.mp3")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatalf("write outside file: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(f.cfg.Paths.UploadDir, "link.mp3")); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if err := os.Mkdir(filepath.Join(f.cfg.Paths.UploadDir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	for _, path := range []string{"/download/missing.mp3", "/download/link.mp3", "/download/nested"} {
		rec := f.get(t, path)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", path, rec.Code)
		}
		if msg := decodeError(t, rec); msg != "File not found" {
			t.Fatalf("%s: error = %q", path, msg)
		}
	}
}

func TestCORSHeadersAndPreflight(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/upload", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Allow-Origin = %q", got)
	}

	health := f.get(t, "/healthz")
	if got := health.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Allow-Origin on GET = %q", got)
	}
	if health.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("X-Request-ID = %q", got)
	}
}

func TestIndexServesUploadForm(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	rec := f.get(t, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `name="activation_bytes"`) {
		t.Fatal("index page is missing the activation bytes field")
	}
	if rec := f.get(t, "/unknown"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestStatusReportsDependencies(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	rec := f.get(t, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status api.ServiceStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.UploadDir != f.cfg.Paths.UploadDir {
		t.Fatalf("upload dir = %q", status.UploadDir)
	}
	if len(status.Dependencies) == 0 || len(status.Directories) == 0 {
		t.Fatalf("expected dependency and directory checks, got %+v", status)
	}
	for _, dir := range status.Directories {
		if !dir.Passed {
			t.Fatalf("directory check failed: %+v", dir)
		}
	}
	if status.Outputs == nil {
		t.Fatal("expected catalog stats")
	}
}

func TestRunFailsWhenLockHeld(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	lock := flock.New(f.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("acquire lock: ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	err = f.srv.Run(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t, ffmpegWritesOutput)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
