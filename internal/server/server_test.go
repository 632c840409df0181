package server_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soloworks/go-nuget-registry/internal/config"
	"github.com/soloworks/go-nuget-registry/internal/nuget"
	"github.com/soloworks/go-nuget-registry/internal/server"
	"github.com/soloworks/go-nuget-registry/internal/storage"
)

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	if cfg == nil {
		cfg = &config.Config{HostURL: "http://registry.test"}
	}
	repo := nuget.NewRepository(storage.NewMemory())
	logger := log.New(io.Discard)
	ts := httptest.NewServer(server.New(cfg, repo, logger))
	t.Cleanup(ts.Close)
	return ts
}

func buildNupkg(t *testing.T, id, version string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(id + ".nuspec")
	require.NoError(t, err)
	_, err = fmt.Fprintf(w, `<?xml version="1.0"?>
<package xmlns="http://schemas.microsoft.com/packaging/2013/05/nuspec.xsd">
  <metadata>
    <id>%s</id>
    <version>%s</version>
    <authors>Author</authors>
    <description>desc</description>
  </metadata>
</package>`, id, version)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func push(t *testing.T, ts *httptest.Server, content []byte, apiKey string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("package", "package.nupkg")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/package", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if apiKey != "" {
		req.Header.Set("X-NuGet-ApiKey", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestPushAndRegistration(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	resp := push(t, ts, buildNupkg(t, "foo", "1.0.0"), "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var index server.RegistrationIndex
	resp = getJSON(t, ts.URL+"/registrations/foo/index.json", &index)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, 1, index.Count)
	require.Len(t, index.Items, 1)
	page := index.Items[0]
	assert.Equal(t, "1.0.0", page.Lower)
	assert.Equal(t, "1.0.0", page.Upper)
	require.Equal(t, 1, page.Count)
	require.Len(t, page.Items, 1)

	leaf := page.Items[0]
	assert.True(t, leaf.Listed)
	assert.Equal(t, "foo", leaf.CatalogEntry.PackageID)
	assert.Equal(t, "1.0.0", leaf.CatalogEntry.Version)
	assert.Equal(t, "http://registry.test/content/foo/1.0.0/foo.1.0.0.nupkg", leaf.PackageContent)
	assert.NotEmpty(t, leaf.ID)
	assert.NotEmpty(t, leaf.CatalogEntry.ID)
	assert.Equal(t, "Author", leaf.CatalogEntry.Authors)
	assert.Equal(t, "desc", leaf.CatalogEntry.Description)
}

func TestPushDuplicateConflicts(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	content := buildNupkg(t, "foo", "1.0.0")

	assert.Equal(t, http.StatusCreated, push(t, ts, content, "").StatusCode)
	assert.Equal(t, http.StatusConflict, push(t, ts, content, "").StatusCode)
}

func TestPushSecondVersionSortedRegistration(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusCreated, push(t, ts, buildNupkg(t, "foo", "1.1.0"), "").StatusCode)
	assert.Equal(t, http.StatusCreated, push(t, ts, buildNupkg(t, "foo", "1.0.0"), "").StatusCode)

	var index server.RegistrationIndex
	resp := getJSON(t, ts.URL+"/registrations/foo/index.json", &index)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, index.Items, 1)
	page := index.Items[0]
	assert.Equal(t, "1.0.0", page.Lower)
	assert.Equal(t, "1.1.0", page.Upper)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "1.0.0", page.Items[0].CatalogEntry.Version)
	assert.Equal(t, "1.1.0", page.Items[1].CatalogEntry.Version)
}

func TestPushInvalidPackage(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	var zipNoNuspec bytes.Buffer
	zw := zip.NewWriter(&zipNoNuspec)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	assert.Equal(t, http.StatusBadRequest, push(t, ts, zipNoNuspec.Bytes(), "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, push(t, ts, buildNupkg(t, "foo", "1"), "").StatusCode)
}

func TestPushWithoutMultipartBody(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/package", bytes.NewReader([]byte("raw")))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPackageEndpointRejectsGet(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/package")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRegistrationEmptyPackage(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	var index server.RegistrationIndex
	resp := getJSON(t, ts.URL+"/registrations/unknown/index.json", &index)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, index.Count)
	assert.Empty(t, index.Items)
}

func TestRegistrationUnknownPathNotFound(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	for _, path := range []string{
		"/registrations/foo",
		"/registrations/foo/1.0.0.json",
		"/registrations/foo/bar/index.json",
	} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestRegistrationPreservesIdCasing(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusCreated, push(t, ts, buildNupkg(t, "Newtonsoft.Json", "13.0.1"), "").StatusCode)

	var index server.RegistrationIndex
	resp := getJSON(t, ts.URL+"/registrations/newtonsoft.json/index.json", &index)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, index.Items, 1)
	require.Len(t, index.Items[0].Items, 1)
	assert.Equal(t, "Newtonsoft.Json", index.Items[0].Items[0].CatalogEntry.PackageID)
}

func TestContentEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	content := buildNupkg(t, "foo", "1.0.0")
	require.Equal(t, http.StatusCreated, push(t, ts, content, "").StatusCode)

	resp, err := http.Get(ts.URL + "/content/foo/1.0.0/foo.1.0.0.nupkg")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "binary/octet-stream", resp.Header.Get("Content-Type"))

	resp, err = http.Get(ts.URL + "/content/foo/9.9.9/foo.9.9.9.nupkg")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContentServesHashFile(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated, push(t, ts, buildNupkg(t, "foo", "1.0.0"), "").StatusCode)

	resp, err := http.Get(ts.URL + "/content/foo/1.0.0/foo.1.0.0.nupkg.sha512")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownPathNotFound(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/search")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIKeys(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		HostURL: "http://registry.test",
		APIKeys: config.APIKeys{
			ReadOnly:  []string{"reader"},
			ReadWrite: []string{"writer"},
		},
	}
	ts := newTestServer(t, cfg)
	content := buildNupkg(t, "foo", "1.0.0")

	assert.Equal(t, http.StatusForbidden, push(t, ts, content, "").StatusCode)
	assert.Equal(t, http.StatusForbidden, push(t, ts, content, "reader").StatusCode)
	assert.Equal(t, http.StatusCreated, push(t, ts, content, "writer").StatusCode)

	// Reads require a key once read-only keys are configured.
	resp, err := http.Get(ts.URL + "/registrations/foo/index.json")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/registrations/foo/index.json", nil)
	require.NoError(t, err)
	req.Header.Set("X-NuGet-ApiKey", "reader")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
