package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sembly/semcall/internal/cache"
	"github.com/sembly/semcall/pkg/artifact"
)

// ShowArtifact resolves ref to a single cached artifact and writes it as
// pretty-printed JSON. A ref is either a full 64-character fingerprint or a
// unique prefix of one.
func ShowArtifact(ctx context.Context, store cache.Store, ref string, w io.Writer) error {
	a, err := ResolveRef(ctx, store, ref)
	if err != nil {
		return err
	}
	if err := FormatSingleJSON(w, a); err != nil {
		return fmt.Errorf("failed to format artifact: %w", err)
	}
	return nil
}

// ResolveRef finds the cached artifact identified by a fingerprint or a
// unique fingerprint prefix.
func ResolveRef(ctx context.Context, store cache.Store, ref string) (*artifact.Artifact, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return nil, fmt.Errorf("empty fingerprint")
	}

	if fp := artifact.Fingerprint(ref); fp.Validate() == nil {
		a, err := store.Get(ctx, fp)
		if errors.Is(err, cache.ErrNotFound) {
			return nil, &ArtifactNotFoundError{Ref: ref}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch artifact: %w", err)
		}
		return a, nil
	}

	// Prefix lookup goes through List; cache sizes are small enough that a
	// full scan is fine.
	all, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached artifacts: %w", err)
	}
	var matches []*artifact.Artifact
	for _, a := range all {
		if strings.HasPrefix(string(a.Fingerprint), ref) {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		return nil, &ArtifactNotFoundError{Ref: ref}
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous fingerprint prefix '%s' (%d matches)", ref, len(matches))
	}
}

// ArtifactNotFoundError reports a fingerprint or prefix with no cached
// artifact behind it, distinguishable from transport failures.
type ArtifactNotFoundError struct {
	Ref string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("no cached artifact matches '%s'", e.Ref)
}

// IsNotFound returns true if the error is an ArtifactNotFoundError.
func IsNotFound(err error) bool {
	var notFound *ArtifactNotFoundError
	return errors.As(err, &notFound)
}
