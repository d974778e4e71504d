package integration

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/uwb-release/internal/config"
	"github.com/oshokin/uwb-release/internal/service/fetcher"
	"github.com/oshokin/uwb-release/internal/toolchain"
)

const engineVersion = "120.1.10+g3ce3184+chromium-120.0.6099.129"

// newSourceTree creates a source root with the interop version file and the third-party checkout.
func newSourceTree(t *testing.T, cdn string) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.SourceRoot = filepath.Join(t.TempDir(), "src")
	cfg.CDNBaseURL = cdn

	writeFile(t, cfg.Path(cfg.VersionSourceFile),
		"public const string CEF_VERSION = \""+engineVersion+"\";\n", 0o644)

	return cfg
}

func writeFile(t *testing.T, path, contents string, mode os.FileMode) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), mode))
}

// cefArchive builds a gzip compressed archive in the CDN layout for a platform token.
func cefArchive(t *testing.T, cfg *config.Config, token string) []byte {
	t.Helper()

	identifier := fetcher.ArchiveName(cfg.ArchivePrefix, engineVersion, token)
	framework := identifier + "/Release/" + cfg.Bundle.FrameworkName + ".framework"

	files := make(map[string]string)
	files[identifier+"/README.txt"] = "CEF " + token
	files[identifier+"/Release/libcef.so"] = "libcef"
	files[identifier+"/Release/libEGL.so"] = "libEGL"
	files[framework+"/"+cfg.Bundle.FrameworkName] = "framework"
	files[framework+"/Resources/icudtl.dat"] = "icu"

	var buffer bytes.Buffer

	compressor := gzip.NewWriter(&buffer)
	writer := tar.NewWriter(compressor)

	require.NoError(t, writer.WriteHeader(&tar.Header{Name: identifier + "/", Typeflag: tar.TypeDir, Mode: 0o755}))

	for name, body := range files {
		require.NoError(t, writer.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(body)),
		}))

		_, err := writer.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	require.NoError(t, compressor.Close())

	return buffer.Bytes()
}

// startCDN serves archives for the given platform tokens.
func startCDN(t *testing.T, tokens ...string) (*httptest.Server, func(cfg *config.Config)) {
	t.Helper()

	var (
		mu       sync.Mutex
		archives = make(map[string][]byte)
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		body, ok := archives[strings.TrimPrefix(r.URL.Path, "/")]
		mu.Unlock()

		if !ok {
			http.NotFound(w, r)

			return
		}

		_, _ = w.Write(body)
	}))

	t.Cleanup(server.Close)

	publish := func(cfg *config.Config) {
		mu.Lock()
		defer mu.Unlock()

		for _, token := range tokens {
			name := fetcher.ArchiveName(cfg.ArchivePrefix, engineVersion, token) + fetcher.ArchiveExtension
			archives[name] = cefArchive(t, cfg, token)
		}
	}

	return server, publish
}

// fakeToolchain stands in for the compiler, git and strip. Publishing the
// engine or helper project writes the files the real compiler would produce.
type fakeToolchain struct {
	cfg *config.Config

	mu       sync.Mutex
	commands []toolchain.Command
}

func (f *fakeToolchain) Run(_ context.Context, cmd toolchain.Command) error {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()

	if cmd.Name != f.cfg.Compiler {
		return nil
	}

	var project, output string

	for _, arg := range cmd.Args {
		switch {
		case strings.HasPrefix(arg, "-p:PublishDir="):
			output = strings.TrimPrefix(arg, "-p:PublishDir=")
		case arg != "publish" && !strings.HasPrefix(arg, "-"):
			project = arg
		}
	}

	if output == "" {
		return nil
	}

	bundle := f.cfg.Bundle

	files := make(map[string]string)

	switch project {
	case f.cfg.Path(f.cfg.EngineProject):
		files[bundle.AppName] = "engine binary"
		files[bundle.InfoPlist] = "engine plist"
		files[bundle.Icon] = "engine icon"
	case f.cfg.Path(f.cfg.SubProcessProject):
		files[bundle.HelperName] = "helper binary"

		for _, variant := range bundle.Variants {
			files[variant.PlistFile()] = "plist " + variant.Suffix
		}
	}

	for name, body := range files {
		if err := os.MkdirAll(output, 0o755); err != nil {
			return err
		}

		if err := os.WriteFile(filepath.Join(output, name), []byte(body), 0o755); err != nil {
			return err
		}
	}

	return nil
}

func (f *fakeToolchain) ran(name string) []toolchain.Command {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []toolchain.Command

	for _, cmd := range f.commands {
		if cmd.Name == name {
			result = append(result, cmd)
		}
	}

	return result
}
