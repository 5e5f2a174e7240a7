/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/

package oci

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"

	cperrors "github.com/mchmarny/craftplan/pkg/errors"
)

// URIScheme prefixes catalog artifact references.
const URIScheme = "oci://"

// DefaultTag is applied when a reference carries no tag.
const DefaultTag = "latest"

// Reference is a parsed oci:// catalog location.
type Reference struct {
	// Registry is the OCI registry host (e.g., "ghcr.io", "localhost:5000").
	Registry string
	// Repository is the repository path (e.g., "acme/catalog").
	Repository string
	// Tag is the artifact tag.
	Tag string
}

// IsReference reports whether s uses the oci:// scheme.
func IsReference(s string) bool {
	return strings.HasPrefix(s, URIScheme)
}

// ParseReference parses oci://registry/repository[:tag]. A missing tag
// resolves to DefaultTag.
func ParseReference(uri string) (*Reference, error) {
	if !IsReference(uri) {
		return nil, cperrors.New(cperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("OCI reference must start with %s: %s", URIScheme, uri))
	}

	named, err := reference.ParseNormalizedNamed(strings.TrimPrefix(uri, URIScheme))
	if err != nil {
		return nil, cperrors.Wrap(cperrors.ErrCodeInvalidRequest, "invalid OCI reference", err)
	}
	if _, ok := named.(reference.Digested); ok {
		return nil, cperrors.New(cperrors.ErrCodeInvalidRequest,
			"digest references are not supported, use a tag")
	}

	ref := &Reference{
		Registry:   reference.Domain(named),
		Repository: reference.Path(named),
		Tag:        DefaultTag,
	}
	if tagged, ok := named.(reference.Tagged); ok {
		ref.Tag = tagged.Tag()
	}

	if err := ValidateRegistryReference(ref.Registry, ref.Repository); err != nil {
		return nil, err
	}
	return ref, nil
}

// ValidateRegistryReference checks that registry and repository form a
// valid image name. A protocol prefix on registry is ignored.
func ValidateRegistryReference(registry, repository string) error {
	name := stripProtocol(registry) + "/" + repository
	if _, err := reference.ParseNormalizedNamed(name); err != nil {
		return cperrors.WrapWithContext(cperrors.ErrCodeInvalidRequest,
			"invalid registry reference", err,
			map[string]any{"registry": registry, "repository": repository})
	}
	if strings.ContainsAny(repository, "@:") {
		return cperrors.NewWithContext(cperrors.ErrCodeInvalidRequest,
			"repository must not carry a tag or digest",
			map[string]any{"repository": repository})
	}
	return nil
}

// String returns the oci:// form of the reference.
func (r *Reference) String() string {
	return URIScheme + r.ImageReference()
}

// ImageReference returns registry/repository:tag.
func (r *Reference) ImageReference() string {
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// WithTag returns a copy of the reference with a different tag.
func (r *Reference) WithTag(tag string) *Reference {
	c := *r
	c.Tag = tag
	return &c
}

func stripProtocol(registry string) string {
	registry = strings.TrimPrefix(registry, "https://")
	registry = strings.TrimPrefix(registry, "http://")
	return registry
}
