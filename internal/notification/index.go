package notification

import "projectpulse.io/pulse/internal/domain"

type key struct {
	projectID string
	typ       domain.NotificationType
}

// index answers "is there already a notification of this type for this
// project" in constant time.
type index map[key]struct{}

func newIndex(set []domain.Notification) index {
	idx := make(index, len(set))
	for _, n := range set {
		idx.add(n)
	}
	return idx
}

func (idx index) add(n domain.Notification) {
	idx[key{n.ProjectID, n.Type}] = struct{}{}
}

func (idx index) has(projectID string, typ domain.NotificationType) bool {
	_, ok := idx[key{projectID, typ}]
	return ok
}
