package basket

import (
	"fmt"
	"slices"
)

// PurgeEngine removes live objects that a restored document does not ship.
type PurgeEngine struct {
	repo   Repository
	logger Logger
}

// NewPurgeEngine creates a PurgeEngine working against repo.
func NewPurgeEngine(repo Repository, logger Logger) *PurgeEngine {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &PurgeEngine{repo: repo, logger: logger}
}

// Purge deletes every live object of target whose name is not in keep and returns
// the deleted names. An empty keep-set is refused unless force is set. Objects
// that disappear while purging are not an error.
func (e *PurgeEngine) Purge(keep []string, target Target, force bool) ([]string, error) {
	if len(keep) == 0 && !force {
		return nil, fmt.Errorf("%w: %s", ErrRefusedEmptyPurge, target)
	}

	live, err := e.repo.ListObjectNames(target)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", target, err)
	}

	keepSet := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		keepSet[name] = struct{}{}
	}

	var deleted []string
	for _, name := range live {
		if _, ok := keepSet[name]; ok {
			continue
		}
		err := e.repo.DeleteObject(target, name)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("purging %s %q: %w", target, name, err)
		}
		e.logger.Info("object purged", "target", target.String(), "name", name)
		deleted = append(deleted, name)
	}
	return deleted, nil
}

// PurgeTypes purges each requested type using the document's names of that type
// as keep-set. Every type is checked for eligibility and for the empty-set gate
// before the first deletion, so a bad request deletes nothing.
func (e *PurgeEngine) PurgeTypes(doc Document, types []string, force bool) (map[string][]string, error) {
	types = dedupe(types)
	if err := AssertEligibleForPurge(types); err != nil {
		return nil, err
	}

	targets := make([]Target, len(types))
	for i, typ := range types {
		if len(doc[typ]) == 0 && !force {
			return nil, fmt.Errorf("%w: document has no %s objects", ErrRefusedEmptyPurge, typ)
		}
		target, err := TargetForType(typ)
		if err != nil {
			return nil, err
		}
		targets[i] = target
	}

	result := make(map[string][]string, len(types))
	for i, typ := range types {
		deleted, err := e.Purge(doc.Names(typ), targets[i], force)
		if err != nil {
			return result, err
		}
		result[typ] = deleted
	}
	return result, nil
}

func dedupe(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
