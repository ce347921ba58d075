package image

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Layer media types accepted from the registry. Both the OCI and Docker
// flavors of plain and gzip-compressed tar layers must be supported for
// compatibility with both packaging conventions.
var acceptedMediaTypes = map[types.MediaType]bool{
	types.OCILayer:                true,
	types.OCIUncompressedLayer:    true,
	types.DockerLayer:             true,
	types.DockerUncompressedLayer: true,
}

// One layer blob of a fetched image.
type Layer struct {
	Descriptor ocispec.Descriptor // Media type, digest, and size declared by the manifest.
	Data       []byte             // The blob, as stored in the registry (possibly compressed).
}

// A fetched image: its layer blobs in manifest order.
//
// The blobs are held in memory and owned by the pipeline between fetch and
// unpack; nothing is cached across runs.
type Image struct {
	Reference string  // Fully qualified reference the image was resolved from.
	Layers    []Layer // Layer blobs in manifest order.
}

// Fetches an image from a remote registry.
//
// The reference string is parsed and resolved to exactly one manifest, the
// registry is contacted with anonymous credentials, and every layer blob is
// downloaded into memory in manifest order. A malformed reference returns
// [ErrReference]; any network or protocol failure, including an unacceptable
// layer media type or a digest mismatch, returns [ErrTransport].
func Pull(ctx context.Context, ref string) (*Image, error) {
	parsed, err := name.ParseReference(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReference, err)
	}

	slog.Info("pulling image", "ref", parsed.Name())

	remoteImg, err := remote.Image(parsed,
		remote.WithContext(ctx),
		remote.WithAuth(authn.Anonymous),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	remoteLayers, err := remoteImg.Layers()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	img := &Image{
		Reference: parsed.Name(),
		Layers:    make([]Layer, 0, len(remoteLayers)),
	}

	for i, remoteLayer := range remoteLayers {
		layer, err := download(remoteLayer)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}

		slog.Debug("layer downloaded",
			"index", i,
			"mediaType", layer.Descriptor.MediaType,
			"digest", layer.Descriptor.Digest,
			"size", layer.Descriptor.Size,
		)

		img.Layers = append(img.Layers, layer)
	}

	slog.Info("image pulled", "ref", img.Reference, "layers", len(img.Layers))
	return img, nil
}

// Downloads a single layer blob into memory and verifies it against the
// manifest's declared digest.
func download(remoteLayer v1.Layer) (Layer, error) {
	mediaType, err := remoteLayer.MediaType()
	if err != nil {
		return Layer{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if !acceptedMediaTypes[mediaType] {
		return Layer{}, fmt.Errorf("%w: unacceptable layer media type %q", ErrTransport, mediaType)
	}

	declared, err := remoteLayer.Digest()
	if err != nil {
		return Layer{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	rc, err := remoteLayer.Compressed()
	if err != nil {
		return Layer{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Layer{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if err := verify(digest.Digest(declared.String()), data); err != nil {
		return Layer{}, err
	}

	return Layer{
		Descriptor: ocispec.Descriptor{
			MediaType: string(mediaType),
			Digest:    digest.Digest(declared.String()),
			Size:      int64(len(data)),
		},
		Data: data,
	}, nil
}

// Checks a downloaded blob against the digest the manifest declared for it.
func verify(declared digest.Digest, data []byte) error {
	if err := declared.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	computed := declared.Algorithm().FromBytes(data)
	if computed != declared {
		return fmt.Errorf("%w: digest mismatch: manifest declares %s, blob is %s", ErrTransport, declared, computed)
	}

	return nil
}
