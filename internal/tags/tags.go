// Package tags converts user-supplied tag mappings into profile label
// annotations and into the query fragment understood by the ingestion
// endpoint.
package tags

import (
	"sort"
	"strings"

	"github.com/google/pprof/profile"
)

// Label is a single key/value annotation attached to profile data.
type Label struct {
	Key   string
	Value string
}

// Labels projects a tag mapping into label records, one per tag.
// Output order is sorted by key so repeated captures of the same tag set
// produce identical profiles.
func Labels(m map[string]string) []Label {
	labels := make([]Label, 0, len(m))
	for k, v := range m {
		labels = append(labels, Label{Key: k, Value: v})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Key < labels[j].Key })
	return labels
}

// Fragment renders a tag mapping as "{k1=v1,k2=v2}" for embedding in the
// upload URL. An empty mapping yields an empty string. Values are passed
// through verbatim; the ingestion endpoint parses the fragment itself and
// does not expect percent-encoding.
func Fragment(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	labels := Labels(m)
	var b strings.Builder
	b.WriteByte('{')
	for i, l := range labels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l.Key)
		b.WriteByte('=')
		b.WriteString(l.Value)
	}
	b.WriteByte('}')
	return b.String()
}

// Apply embeds the given labels into every sample of p.
func Apply(p *profile.Profile, labels []Label) {
	if p == nil || len(labels) == 0 {
		return
	}
	for _, s := range p.Sample {
		if s.Label == nil {
			s.Label = make(map[string][]string, len(labels))
		}
		for _, l := range labels {
			s.Label[l.Key] = []string{l.Value}
		}
	}
}
