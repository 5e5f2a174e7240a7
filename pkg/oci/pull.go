/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/

package oci

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/registry/remote"
)

// PullOptions configures a catalog pull.
type PullOptions struct {
	// Reference is the artifact to pull.
	Reference *Reference
	// DestDir receives the unpacked catalog directory.
	DestDir string
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
}

// PullResult describes a pulled artifact.
type PullResult struct {
	// Digest is the manifest digest.
	Digest string
	// Dir is the directory holding the catalog files.
	Dir string
}

// Pull copies a catalog artifact from the registry and unpacks it under DestDir.
func Pull(ctx context.Context, opts PullOptions) (*PullResult, error) {
	if opts.Reference == nil {
		return nil, fmt.Errorf("reference is required to pull a catalog")
	}

	repo, err := remote.NewRepository(fmt.Sprintf("%s/%s", stripProtocol(opts.Reference.Registry), opts.Reference.Repository))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote repository: %w", err)
	}
	repo.PlainHTTP = opts.PlainHTTP
	repo.Client = createAuthClient(opts.PlainHTTP, opts.InsecureTLS)

	slog.Info("pulling catalog artifact", "reference", opts.Reference.String())
	return pullFrom(ctx, repo, opts.Reference.Tag, opts.DestDir)
}

func pullFrom(ctx context.Context, src oras.ReadOnlyTarget, tag, destDir string) (*PullResult, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	fs, err := file.New(destDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}
	defer func() { _ = fs.Close() }()

	desc, err := oras.Copy(ctx, src, tag, fs, tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to pull artifact: %w", err)
	}
	if desc.ArtifactType != "" && desc.ArtifactType != ArtifactType {
		return nil, fmt.Errorf("unexpected artifact type %q, want %q", desc.ArtifactType, ArtifactType)
	}

	dir := filepath.Join(destDir, catalogDirName)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("artifact did not contain a catalog directory: %w", err)
	}

	return &PullResult{
		Digest: desc.Digest.String(),
		Dir:    dir,
	}, nil
}
