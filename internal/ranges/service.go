package ranges

import (
	"context"
	"log"

	"lexicon/api/internal/rangemeta"
	"lexicon/api/internal/store"
)

// CanonicalStore is the connector to the canonical XML document store.
// Queries and updates are XQuery text; the connector is bound to a base
// database name and the per-project database is derived from it.
type CanonicalStore interface {
	IsConnected() bool
	ExecuteQuery(ctx context.Context, query string) (string, error)
	ExecuteUpdate(ctx context.Context, query string) error
	Database() string
}

// CustomStore is the relational side-store holding project-specific
// custom ranges.
type CustomStore interface {
	ListByProject(ctx context.Context, projectID string) ([]store.CustomRange, error)
	DeleteByRange(ctx context.Context, projectID, rangeName string) error
}

// MetadataSource supplies the static config-fallback metadata.
type MetadataSource interface {
	All() map[string]rangemeta.Entry
	Lookup(rangeID string) (rangemeta.Entry, bool)
}

// Service is the ranges engine: reconciliation reads, guarded mutations,
// and usage scans. Every operation is a synchronous sequence of store
// round-trips; mutual exclusion across concurrent writers belongs to the
// underlying store.
type Service struct {
	canonical CanonicalStore
	custom    CustomStore
	meta      MetadataSource
	cache     Cache
}

func NewService(canonical CanonicalStore, custom CustomStore, meta MetadataSource, cache Cache) *Service {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Service{canonical: canonical, custom: custom, meta: meta, cache: cache}
}

// dbName derives the per-project canonical database from the bound base
// name. The empty project id addresses the base database itself.
func (s *Service) dbName(projectID string) string {
	base := s.canonical.Database()
	if projectID == "" {
		return base
	}
	return base + "-" + projectID
}

// AllRanges returns the merged view of canonical, custom, and config
// ranges for a project, cached per project until the next mutation. A
// corrupt canonical document degrades to "no canonical ranges" with a
// logged warning so custom and config ranges stay reachable. When every
// source is empty the result is an empty map, signalling an uninitialized
// environment.
func (s *Service) AllRanges(ctx context.Context, projectID string) (map[string]*Range, error) {
	if view, ok := s.cache.Get(ctx, projectID); ok {
		return view, nil
	}

	canonical, err := s.loadCanonical(ctx, projectID)
	if err != nil {
		return nil, err
	}

	customRows, err := s.custom.ListByProject(ctx, projectID)
	if err != nil {
		return nil, dbError("list custom ranges", err)
	}

	merged := MergeSources(canonical, customRows, s.meta.All())
	s.cache.Put(ctx, projectID, merged)
	return merged, nil
}

// Range returns one range from the merged view, optionally resolved via
// the hierarchy resolver. Ranges materialized purely from config fallback
// with no elements trigger one targeted canonical query, since elements
// may have landed after the aggregate snapshot was built. Absence from
// every source is a NotFoundError.
func (s *Service) Range(ctx context.Context, rangeID, projectID string, resolved bool) (*Range, error) {
	view, err := s.AllRanges(ctx, projectID)
	if err != nil {
		return nil, err
	}

	r, ok := view[rangeID]
	switch {
	case ok && len(r.Elements) > 0:
		// Cached copy already owned by this call.
	case ok && r.ProvidedByConfig:
		found, err := s.fetchRangeNode(ctx, projectID, rangeID)
		if err != nil {
			return nil, err
		}
		if found != nil && len(found.Elements) > 0 {
			r.Elements = found.Elements
			r.children = nil
			if r.GUID == "" {
				r.GUID = found.GUID
			}
			s.cache.Put(ctx, projectID, view)
		}
	case ok:
		// Present but empty and not config-backed: return as-is.
	default:
		found, err := s.fetchRangeNode(ctx, projectID, rangeID)
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, notFound("range", rangeID)
		}
		found.Official = true
		found.Standard = standardRangeIDs[canonicalAlias(rangeID)]
		applyMetaFallback(found, s.meta.All())
		view[rangeID] = found
		s.cache.Put(ctx, projectID, view)
		r = found
	}

	if resolved {
		return Resolve(r), nil
	}
	return r, nil
}

// loadCanonical fetches and decodes the project's lift-ranges document.
// Transport failure is fatal for the call; decode failure is not.
func (s *Service) loadCanonical(ctx context.Context, projectID string) (map[string]*Range, error) {
	text, err := s.canonical.ExecuteQuery(ctx, rangesDocQuery(s.dbName(projectID)))
	if err != nil {
		return nil, dbError("query canonical ranges", err)
	}
	decoded, err := DecodeRanges(text)
	if err != nil {
		log.Printf("ranges: canonical ranges document for project %q is malformed, continuing without it: %v", projectID, err)
		return map[string]*Range{}, nil
	}
	return decoded, nil
}

// fetchRangeNode issues the targeted single-range canonical query. A
// missing node decodes to nil; a malformed node degrades to nil with a
// logged warning, matching the aggregate path.
func (s *Service) fetchRangeNode(ctx context.Context, projectID, rangeID string) (*Range, error) {
	text, err := s.canonical.ExecuteQuery(ctx, rangeByIDQuery(s.dbName(projectID), rangeID))
	if err != nil {
		return nil, dbError("query canonical range", err)
	}
	found, err := DecodeRangeNode(text)
	if err != nil {
		log.Printf("ranges: canonical range %q for project %q is malformed, ignoring: %v", rangeID, projectID, err)
		return nil, nil
	}
	return found, nil
}
