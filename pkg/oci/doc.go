// Package oci distributes catalogs as artifacts in OCI-compliant registries.
//
// A catalog directory (recipes.yaml and machines.yaml) is packed with ORAS
// into a single gzip layer under an OCI 1.1 manifest with artifact type
// ArtifactType, then copied to any registry (GHCR, ECR, Docker Hub, local
// registries).
//
// # Usage
//
//	ref, err := oci.ParseReference("oci://ghcr.io/acme/catalog:v1")
//	if err != nil {
//	    return err
//	}
//
//	res, err := oci.Push(ctx, oci.PushOptions{
//	    SourceDir: "./catalog",
//	    Reference: ref,
//	})
//
//	pulled, err := oci.Pull(ctx, oci.PullOptions{
//	    Reference: ref,
//	    DestDir:   tmp,
//	})
//	// pulled.Dir holds the catalog files
//
// # Authentication
//
// Credentials are loaded from the standard Docker configuration
// (~/.docker/config.json) through the ORAS credentials package.
//
// # Options
//
//   - PlainHTTP: Use HTTP instead of HTTPS (for local development registries)
//   - InsecureTLS: Skip TLS certificate verification
//   - ReproducibleTimestamp: Fixed created annotation for reproducible pushes
package oci
