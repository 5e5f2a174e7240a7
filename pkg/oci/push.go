/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/

package oci

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// ArtifactType identifies catalog artifacts in a registry.
const ArtifactType = "application/vnd.craftplan.catalog.v1"

// catalogDirName is the layer title; pulls unpack the catalog under it.
const catalogDirName = "catalog"

// PushOptions configures a catalog push.
type PushOptions struct {
	// SourceDir is the directory holding recipes.yaml and machines.yaml.
	SourceDir string
	// Reference is the destination artifact.
	Reference *Reference
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
	// Annotations are added to the manifest.
	Annotations map[string]string
	// ReproducibleTimestamp sets a fixed created annotation.
	ReproducibleTimestamp string
}

// PushResult describes a pushed artifact.
type PushResult struct {
	// Digest is the SHA256 digest of the pushed manifest.
	Digest string
	// Reference is the full image reference (registry/repository:tag).
	Reference string
}

// Push packs SourceDir as a catalog artifact and copies it to the registry.
func Push(ctx context.Context, opts PushOptions) (*PushResult, error) {
	if opts.Reference == nil {
		return nil, fmt.Errorf("reference is required to push a catalog")
	}
	if opts.Reference.Tag == "" {
		return nil, fmt.Errorf("tag is required to push a catalog")
	}

	absDir, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for push dir: %w", err)
	}
	if info, statErr := os.Stat(absDir); statErr != nil || !info.IsDir() {
		return nil, fmt.Errorf("catalog directory not found: %s", opts.SourceDir)
	}

	// The file store works relative to the parent so the layer is titled
	// with catalogDirName regardless of the local directory name.
	staging, err := os.MkdirTemp("", "craftplan-push-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	fs, err := file.New(staging)
	if err != nil {
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}
	defer func() { _ = fs.Close() }()

	if _, err := pack(ctx, fs, absDir, opts); err != nil {
		return nil, err
	}

	repo, err := remote.NewRepository(fmt.Sprintf("%s/%s", stripProtocol(opts.Reference.Registry), opts.Reference.Repository))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote repository: %w", err)
	}
	repo.PlainHTTP = opts.PlainHTTP
	repo.Client = createAuthClient(opts.PlainHTTP, opts.InsecureTLS)

	slog.Info("pushing catalog artifact", "reference", opts.Reference.String())

	desc, err := oras.Copy(ctx, fs, opts.Reference.Tag, repo, opts.Reference.Tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to push artifact to registry: %w", err)
	}

	return &PushResult{
		Digest:    desc.Digest.String(),
		Reference: opts.Reference.ImageReference(),
	}, nil
}

// pack adds dir to the store as a single gzip layer, packs an OCI 1.1
// manifest and tags it with the reference tag.
func pack(ctx context.Context, fs *file.Store, dir string, opts PushOptions) (ociv1.Descriptor, error) {
	fs.TarReproducible = true

	layer, err := fs.Add(ctx, catalogDirName, ociv1.MediaTypeImageLayerGzip, dir)
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to add catalog directory to store: %w", err)
	}

	annotations := make(map[string]string, len(opts.Annotations)+1)
	for k, v := range opts.Annotations {
		annotations[k] = v
	}
	if opts.ReproducibleTimestamp != "" {
		annotations[ociv1.AnnotationCreated] = opts.ReproducibleTimestamp
	}

	manifest, err := oras.PackManifest(ctx, fs, oras.PackManifestVersion1_1, ArtifactType,
		oras.PackManifestOptions{
			Layers:              []ociv1.Descriptor{layer},
			ManifestAnnotations: annotations,
		})
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to pack manifest: %w", err)
	}

	if err := fs.Tag(ctx, manifest, opts.Reference.Tag); err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to tag manifest in local store: %w", err)
	}
	return manifest, nil
}

func createAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		slog.Debug("docker credentials unavailable", "error", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
	}

	client := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}
	if credStore != nil {
		client.Credential = credentials.Credential(credStore)
	}
	return client
}
