package asset

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestLocalResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	res, err := NewResource(thisFile, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.Ext() != ".go" {
		t.Fatalf("expected extension .go; got %q", res.Ext())
	}
}

func TestHttpResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	thisDir := filepath.Dir(thisFile)

	server := httptest.NewServer(http.FileServer(http.Dir(thisDir)))
	defer server.Close()

	fetchUrl := server.URL + "/" + filepath.Base(thisFile)
	res, err := NewResource(fetchUrl, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if !res.IsRemote() || res.RemotePath() != filepath.Base(thisFile) {
		t.Fatalf("expected remote resource with path %s; got %s", filepath.Base(thisFile), res.RemotePath())
	}

	fetchUrl = server.URL + "/file-not-found.toml"
	expError := fmt.Sprintf("resource: could not fetch '%s': status %d", fetchUrl, 404)
	_, err = NewResource(fetchUrl, nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestRelativeResources(t *testing.T) {
	serverHits := 0
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHits++
		switch r.URL.Path {
		case "/scenes/room.toml", "/scenes/room.obj":
			w.Write([]byte("OK"))
		default:
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	res1, err := NewResource(server.URL+"/scenes/room.toml", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res1.Close()
	res2, err := NewResource("room.obj", res1)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.Close()

	if serverHits != 2 {
		t.Fatalf("expected server to receive 2 requests; got %d", serverHits)
	}
}

func TestLocalRelativeResource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "scene.toml"), []byte("a = 1"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mesh.obj"), []byte("v 0 0 0"), 0644); err != nil {
		t.Fatal(err)
	}

	parent, err := NewResource(filepath.Join(dir, "scene.toml"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer parent.Close()

	child, err := NewResource("mesh.obj", parent)
	if err != nil {
		t.Fatal(err)
	}
	defer child.Close()

	data, err := child.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v 0 0 0" {
		t.Fatalf("expected relative resource payload; got %q", data)
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	expError := "resource: unsupported scheme 'gopher'"
	_, err := NewResource("gopher://digging.go", nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestResourceConnectionRefusedError(t *testing.T) {
	_, err := NewResource("http://localhost:12345/foo.go", nil)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected to get 'connection refused error'; got %v", err)
	}
}

func TestResourceFromBytes(t *testing.T) {
	res := NewResourceFromBytes("embedded.yaml", []byte("payload"))
	defer res.Close()

	if res.Ext() != ".yaml" {
		t.Fatalf("expected extension .yaml; got %q", res.Ext())
	}
	data, err := res.Bytes()
	if err != nil || string(data) != "payload" {
		t.Fatalf("expected payload; got %q (err %v)", data, err)
	}
}
