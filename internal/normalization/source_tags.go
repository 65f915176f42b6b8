package normalization

import "xrpl-activity-lab/internal/domain"

// DefaultSourceTags are the integrator tags recognised without configuration.
var DefaultSourceTags = map[uint32]string{
	270601: "FirstLedger",
}

// SourceTags maps numeric source tags to integrator labels. Read-only after
// construction.
type SourceTags struct {
	labels map[uint32]string
}

// NewSourceTags builds a table from the defaults plus extra. Entries in extra
// override defaults; an empty label removes a default.
func NewSourceTags(extra map[uint32]string) *SourceTags {
	labels := make(map[uint32]string, len(DefaultSourceTags)+len(extra))
	for tag, label := range DefaultSourceTags {
		labels[tag] = label
	}
	for tag, label := range extra {
		if label == "" {
			delete(labels, tag)
			continue
		}
		labels[tag] = label
	}
	return &SourceTags{labels: labels}
}

// Lookup returns the tag with its label, or an empty label for unknown tags.
func (t *SourceTags) Lookup(tag uint32) domain.SourceTag {
	if t == nil {
		return domain.SourceTag{Value: tag}
	}
	return domain.SourceTag{Value: tag, Label: t.labels[tag]}
}

// Len returns the number of known tags.
func (t *SourceTags) Len() int {
	if t == nil {
		return 0
	}
	return len(t.labels)
}
