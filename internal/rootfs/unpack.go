package rootfs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/containerd/containerd/v2/pkg/archive"
	"github.com/containerd/containerd/v2/pkg/archive/compression"

	"github.com/moorworks/moor/internal/image"
	"github.com/moorworks/moor/internal/paths"
)

// Unpacks a fetched image's layers onto the destination root.
//
// Each layer blob is treated as a possibly gzip-compressed tar stream,
// decompressed, and extracted into root in manifest order. The destination
// is created if it does not exist. A decompression or extraction failure
// returns [ErrUnpack]; the partially populated root is left in place.
func Unpack(ctx context.Context, img *image.Image, root string) error {
	if err := os.MkdirAll(root, paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrUnpack, err)
	}

	slog.Info("unpacking image", "ref", img.Reference, "root", root, "layers", len(img.Layers))

	for i, layer := range img.Layers {
		if err := apply(ctx, root, layer); err != nil {
			return fmt.Errorf("layer %d (%s): %w", i, layer.Descriptor.Digest, err)
		}
	}

	return nil
}

// Applies a single layer onto the root.
//
// Compression is auto-detected from the blob, so plain and gzip tar layers
// are handled uniformly. When running unprivileged, ownership recorded in
// the archive cannot be restored and entries are owned by the invoking user
// instead.
func apply(ctx context.Context, root string, layer image.Layer) error {
	decompressed, err := compression.DecompressStream(bytes.NewReader(layer.Data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnpack, err)
	}
	defer decompressed.Close()

	var opts []archive.ApplyOpt
	if os.Geteuid() != 0 {
		opts = append(opts, archive.WithNoSameOwner())
	}

	size, err := archive.Apply(ctx, root, decompressed, opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnpack, err)
	}

	slog.Debug("layer applied", "digest", layer.Descriptor.Digest, "bytes", size)
	return nil
}
