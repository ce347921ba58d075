// Package image fetches container images from remote registries.
//
// A reference string (registry/repository:tag or @digest) is resolved and
// the image's layer blobs are downloaded into memory in manifest order,
// using anonymous authentication. Only the four standard tar layer media
// types are accepted: OCI plain and gzip, and their Docker counterparts.
// Every downloaded blob is verified against the digest declared in the
// manifest.
//
// The fetcher performs no retries; transport failures surface unchanged to
// the caller. Retry policy, if any, belongs above this boundary.
//
// Example usage:
//
//	img, err := image.Pull(ctx, "docker.io/library/alpine:latest")
//	if err != nil {
//	    return err
//	}
//
//	for _, layer := range img.Layers {
//	    // layer.Descriptor describes the blob held in layer.Data.
//	}
package image
