package rootfs

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/moorworks/moor/internal/image"
)

// A single entry in a test layer.
type entry struct {
	name     string
	content  string
	mode     int64
	linkname string
}

// Builds a gzip-compressed tar layer from the given entries.
func makeLayer(t *testing.T, entries []entry) image.Layer {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		hdr := &tar.Header{
			Name: e.name,
			Mode: e.mode,
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0644
		}

		switch {
		case e.linkname != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.linkname
		case e.name[len(e.name)-1] == '/':
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0755
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.content))
		}

		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header %q: %v", e.name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.content)); err != nil {
				t.Fatalf("writing tar entry %q: %v", e.name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}

	data := buf.Bytes()
	return image.Layer{
		Descriptor: ocispec.Descriptor{
			MediaType: ocispec.MediaTypeImageLayerGzip,
			Digest:    digest.FromBytes(data),
			Size:      int64(len(data)),
		},
		Data: data,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestUnpackLaterLayerWins(t *testing.T) {
	layer1 := makeLayer(t, []entry{
		{name: "etc/"},
		{name: "etc/os-release", content: "NAME=first"},
		{name: "etc/hostname", content: "keep-me"},
	})
	layer2 := makeLayer(t, []entry{
		{name: "etc/"},
		{name: "etc/os-release", content: "NAME=second"},
	})

	img := &image.Image{
		Reference: "example.test/layered:latest",
		Layers:    []image.Layer{layer1, layer2},
	}

	root := t.TempDir()
	if err := Unpack(context.Background(), img, root); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	if got := readFile(t, filepath.Join(root, "etc", "os-release")); got != "NAME=second" {
		t.Fatalf("os-release = %q, want overwrite by later layer", got)
	}
	if got := readFile(t, filepath.Join(root, "etc", "hostname")); got != "keep-me" {
		t.Fatalf("hostname = %q, want untouched lower-layer content", got)
	}
}

func TestUnpackFirstLayerAloneDiffersOnlyOnOverwrittenPaths(t *testing.T) {
	layer1 := makeLayer(t, []entry{
		{name: "etc/"},
		{name: "etc/os-release", content: "NAME=first"},
		{name: "etc/hostname", content: "keep-me"},
	})
	layer2 := makeLayer(t, []entry{
		{name: "etc/"},
		{name: "etc/os-release", content: "NAME=second"},
	})

	both := t.TempDir()
	only1 := t.TempDir()

	if err := Unpack(context.Background(), &image.Image{Layers: []image.Layer{layer1, layer2}}, both); err != nil {
		t.Fatalf("Unpack both: %v", err)
	}
	if err := Unpack(context.Background(), &image.Image{Layers: []image.Layer{layer1}}, only1); err != nil {
		t.Fatalf("Unpack single: %v", err)
	}

	// Paths layer2 did not touch must be identical.
	if readFile(t, filepath.Join(both, "etc", "hostname")) != readFile(t, filepath.Join(only1, "etc", "hostname")) {
		t.Fatal("untouched path differs between single- and two-layer unpack")
	}

	// The overwritten path must be the only difference.
	if readFile(t, filepath.Join(only1, "etc", "os-release")) != "NAME=first" {
		t.Fatal("single-layer unpack lost the first layer's content")
	}
	if readFile(t, filepath.Join(both, "etc", "os-release")) != "NAME=second" {
		t.Fatal("two-layer unpack lost the second layer's content")
	}
}

func TestUnpackPreservesModesAndSymlinks(t *testing.T) {
	layer := makeLayer(t, []entry{
		{name: "bin/"},
		{name: "bin/tool", content: "#!/bin/sh\n", mode: 0755},
		{name: "bin/alias", linkname: "tool"},
	})

	root := t.TempDir()
	if err := Unpack(context.Background(), &image.Image{Layers: []image.Layer{layer}}, root); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	info, err := os.Stat(filepath.Join(root, "bin", "tool"))
	if err != nil {
		t.Fatalf("stat bin/tool: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Fatalf("bin/tool mode = %v, want 0755", info.Mode().Perm())
	}

	target, err := os.Readlink(filepath.Join(root, "bin", "alias"))
	if err != nil {
		t.Fatalf("readlink bin/alias: %v", err)
	}
	if target != "tool" {
		t.Fatalf("bin/alias -> %q, want %q", target, "tool")
	}
}

func TestUnpackMalformedLayer(t *testing.T) {
	// Gzip magic followed by junk: decompression starts, then fails.
	data := append([]byte{0x1f, 0x8b}, bytes.Repeat([]byte{0xde, 0xad}, 64)...)
	img := &image.Image{
		Layers: []image.Layer{{
			Descriptor: ocispec.Descriptor{
				MediaType: ocispec.MediaTypeImageLayerGzip,
				Digest:    digest.FromBytes(data),
				Size:      int64(len(data)),
			},
			Data: data,
		}},
	}

	err := Unpack(context.Background(), img, t.TempDir())
	if err == nil {
		t.Fatal("Unpack of malformed layer succeeded")
	}
	if !errors.Is(err, ErrUnpack) {
		t.Fatalf("Unpack = %v, want ErrUnpack", err)
	}
}
