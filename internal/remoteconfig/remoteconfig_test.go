package remoteconfig

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/simpleg-eu/cp-core/internal/apperr"
	"github.com/simpleg-eu/cp-core/internal/testutil"
)

const applicationYAML = `Root: yes
Example:
  Inner:
    Value: 5
  Yeah: true
Auth:
  Issuers:
    - https://issuer.example
`

func zipPackage(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func testParams(host string) Params {
	return Params{Host: host, Stage: "dev", Environment: "local", Component: "auth gate"}
}

func TestHTTPDownloader(t *testing.T) {
	pkg := zipPackage(t, map[string]string{"application.yaml": applicationYAML})
	server := testutil.TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if r.URL.Path != "/config" || q.Get("stage") != "dev" || q.Get("environment") != "local" || q.Get("component") != "auth gate" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_, _ = w.Write(pkg)
	}))

	t.Run("downloads package", func(t *testing.T) {
		data, err := NewHTTPDownloader("secret-token", time.Second).Download(context.Background(), testParams(server.URL))
		if err != nil {
			t.Fatalf("Download() error = %v", err)
		}
		if !bytes.Equal(data, pkg) {
			t.Error("downloaded package differs")
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		_, err := NewHTTPDownloader("wrong", time.Second).Download(context.Background(), testParams(server.URL))
		if !errors.Is(err, apperr.ErrRequestFailure) {
			t.Errorf("Download() error = %v, want %s", err, apperr.KindRequestFailure)
		}
	})

	t.Run("invalid params", func(t *testing.T) {
		_, err := NewHTTPDownloader("secret-token", time.Second).Download(context.Background(), Params{Host: server.URL})
		if !errors.Is(err, apperr.ErrRequestFailure) {
			t.Errorf("Download() error = %v, want %s", err, apperr.KindRequestFailure)
		}
	})
}

func TestHTTPDownloaderTimeout(t *testing.T) {
	server := testutil.TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))

	_, err := NewHTTPDownloader("tok", 50*time.Millisecond).Download(context.Background(), testParams(server.URL))
	if !errors.Is(err, apperr.ErrTimedOut) {
		t.Fatalf("Download() error = %v, want %s", err, apperr.KindTimedOut)
	}
}

func TestZipExtractor(t *testing.T) {
	dir := t.TempDir()
	pkg := zipPackage(t, map[string]string{
		"config/":                       "",
		"config/application.yaml":       applicationYAML,
		"config/subfolder/another.yaml": "Another: 1\n",
	})

	if err := (ZipExtractor{}).Extract(pkg, dir); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	for _, p := range []string{"config", "config/application.yaml", "config/subfolder/another.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
}

func TestZipExtractorRejects(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"not a zip", []byte("definitely not a zip")},
		{"path traversal", zipPackage(t, map[string]string{"../escape.yaml": "x: 1\n"})},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dir := t.TempDir()
			err := (ZipExtractor{}).Extract(c.data, dir)
			if !errors.Is(err, apperr.ErrCompressionFailure) {
				t.Errorf("Extract() error = %v, want %s", err, apperr.KindCompressionFailure)
			}
			if _, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "escape.yaml")); statErr == nil {
				t.Error("entry escaped the target directory")
			}
		})
	}
}

func TestFileGetter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "application.yaml")
	if err := os.WriteFile(path, []byte(applicationYAML), 0o600); err != nil {
		t.Fatalf("failed to write yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("a: [unclosed"), 0o600); err != nil {
		t.Fatalf("failed to write yaml: %v", err)
	}
	g := NewFileGetter(dir)

	t.Run("nested value", func(t *testing.T) {
		var got int
		if err := g.UnmarshalKey("application.yaml", "Example:Inner:Value", &got); err != nil {
			t.Fatalf("UnmarshalKey() error = %v", err)
		}
		if got != 5 {
			t.Errorf("value = %d, want 5", got)
		}
	})

	t.Run("root value", func(t *testing.T) {
		got, err := g.Get("application.yaml", "Root")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != "yes" {
			t.Errorf("value = %v, want yes", got)
		}
	})

	t.Run("list value", func(t *testing.T) {
		var issuers []string
		if err := g.UnmarshalKey("application.yaml", "Auth:Issuers", &issuers); err != nil {
			t.Fatalf("UnmarshalKey() error = %v", err)
		}
		if len(issuers) != 1 || issuers[0] != "https://issuer.example" {
			t.Errorf("issuers = %v", issuers)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := g.Get("application.yaml", "Example:Nope")
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Get() error = %v, want %s", err, apperr.KindNotFound)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := g.Get("absent.yaml", "Root")
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Get() error = %v, want %s", err, apperr.KindNotFound)
		}
	})

	t.Run("broken file", func(t *testing.T) {
		_, err := g.Get("broken.yaml", "a")
		if !errors.Is(err, apperr.ErrSerializationFailure) {
			t.Errorf("Get() error = %v, want %s", err, apperr.KindSerializationFailure)
		}
	})

	t.Run("cached after first read", func(t *testing.T) {
		if err := os.WriteFile(path, []byte("Root: no\n"), 0o600); err != nil {
			t.Fatalf("failed to rewrite yaml: %v", err)
		}
		got, err := g.Get("application.yaml", "Root")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != "yes" {
			t.Errorf("value = %v, want cached yes", got)
		}
	})
}

func TestReadValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	if err := os.WriteFile(path, []byte(applicationYAML), 0o600); err != nil {
		t.Fatalf("failed to write yaml: %v", err)
	}
	value, err := ReadValue(path)
	if err != nil {
		t.Fatalf("ReadValue() error = %v", err)
	}
	if value["root"] != "yes" {
		t.Errorf("root = %v, want yes", value["root"])
	}
}

type countingDownloader struct {
	calls int
	data  []byte
	err   error
}

func (d *countingDownloader) Download(context.Context, Params) ([]byte, error) {
	d.calls++
	return d.data, d.err
}

func TestClientInitializesOnce(t *testing.T) {
	workingDir := filepath.Join(t.TempDir(), "work")
	d := &countingDownloader{data: zipPackage(t, map[string]string{"application.yaml": applicationYAML})}
	c := NewClient(testParams("https://config.example"), workingDir, d, ZipExtractor{}, NewFileGetter(workingDir))

	for i := 0; i < 2; i++ {
		var got bool
		if err := c.UnmarshalKey(context.Background(), "application.yaml", "Example:Yeah", &got); err != nil {
			t.Fatalf("UnmarshalKey() error = %v", err)
		}
		if !got {
			t.Error("value = false, want true")
		}
	}
	if d.calls != 1 {
		t.Errorf("download calls = %d, want 1", d.calls)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(workingDir); !os.IsNotExist(err) {
		t.Error("expected working directory to be removed")
	}
}

func TestClientSkipsExistingDirectory(t *testing.T) {
	workingDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workingDir, "application.yaml"), []byte(applicationYAML), 0o600); err != nil {
		t.Fatalf("failed to write yaml: %v", err)
	}
	d := &countingDownloader{err: errors.New("must not be called")}
	c := NewClient(testParams("https://config.example"), workingDir, d, ZipExtractor{}, NewFileGetter(workingDir))

	if _, err := c.Get(context.Background(), "application.yaml", "Root"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.calls != 0 {
		t.Errorf("download calls = %d, want 0", d.calls)
	}
}

func TestClientDownloadFailureRetries(t *testing.T) {
	workingDir := filepath.Join(t.TempDir(), "work")
	d := &countingDownloader{err: apperr.New(apperr.KindTimedOut, "configuration download has timed out")}
	c := NewClient(testParams("https://config.example"), workingDir, d, ZipExtractor{}, NewFileGetter(workingDir))

	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), "application.yaml", "Root"); !errors.Is(err, apperr.ErrTimedOut) {
			t.Fatalf("Get() error = %v, want %s", err, apperr.KindTimedOut)
		}
	}
	if d.calls != 2 {
		t.Errorf("download calls = %d, want 2", d.calls)
	}
	if _, err := os.Stat(workingDir); !os.IsNotExist(err) {
		t.Error("failed initialization left the working directory behind")
	}
}

func TestBuild(t *testing.T) {
	pkg := zipPackage(t, map[string]string{"application.yaml": applicationYAML})
	server := testutil.TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer env-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write(pkg)
	}))
	t.Setenv(AccessTokenEnv, "env-token")

	c, err := Build(Options{Params: testParams(server.URL), BaseDir: t.TempDir(), Timeout: time.Second})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	got, err := c.Get(context.Background(), "application.yaml", "Example:Inner:Value")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != 5 {
		t.Errorf("value = %v (%T), want 5", got, got)
	}
}

func TestBuildRequiresToken(t *testing.T) {
	t.Setenv(AccessTokenEnv, "")
	if _, err := Build(Options{Params: testParams("https://config.example")}); err == nil {
		t.Fatal("expected error without access token")
	}
}
