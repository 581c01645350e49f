package digest

import (
	"fmt"
	"sync"

	"beqcat/internal/services"
)

// Owner describes which entry first claimed a digest.
type Owner struct {
	Author string
	Title  string
	Path   string
}

// Collision is a diagnostic raised when distinct entries share a digest. It
// never changes output.
type Collision struct {
	Digest string
	First  Owner
	Second Owner
}

// Err returns the collision as an error tagged with ErrIdentityCollision.
func (c Collision) Err() error {
	return services.Wrap(services.ErrIdentityCollision, "digest", c.Digest[:min(12, len(c.Digest))],
		fmt.Sprintf("%s %q (%s) and %s %q (%s)", c.First.Author, c.First.Title, c.First.Path, c.Second.Author, c.Second.Title, c.Second.Path), nil)
}

// Detector tracks digest owners across all sources of one run.
type Detector struct {
	mu     sync.Mutex
	owners map[string]Owner
}

// NewDetector returns an empty detector.
func NewDetector() *Detector {
	return &Detector{owners: make(map[string]Owner)}
}

// Observe records owner for digest and reports a collision when a different
// author or title already holds it. Repeats by the same author and title,
// such as one record rendered for several audio formats, are not collisions.
func (d *Detector) Observe(digest string, owner Owner) (Collision, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	first, ok := d.owners[digest]
	if !ok {
		d.owners[digest] = owner
		return Collision{}, false
	}
	if first.Author == owner.Author && first.Title == owner.Title {
		return Collision{}, false
	}
	return Collision{Digest: digest, First: first, Second: owner}, true
}
