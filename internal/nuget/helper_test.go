package nuget_test

import (
	"archive/zip"
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildZip assembles an in-memory zip archive from entry name to content.
func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func nuspecXML(id, version string) []byte {
	return fmt.Appendf(nil, `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://schemas.microsoft.com/packaging/2013/05/nuspec.xsd">
  <metadata>
    <id>%s</id>
    <version>%s</version>
    <authors>Example Author</authors>
    <description>A test package.</description>
    <projectUrl>https://example.com/project</projectUrl>
    <tags>test sample</tags>
  </metadata>
</package>`, id, version)
}

// buildNupkg assembles a minimal well-formed package for id and version.
func buildNupkg(t *testing.T, id, version string) []byte {
	t.Helper()

	return buildZip(t, map[string][]byte{
		id + ".nuspec":             nuspecXML(id, version),
		"lib/netstandard2.0/a.dll": []byte("not a real assembly"),
	})
}
