package internal

import (
	"fmt"
	"io"
	"strings"

	"github.com/starford/propindex/internal/facetservice"
)

// WriteTree prints the overview as an indented outline. Value counts include
// descendants when includeDescendants is set.
func WriteTree(w io.Writer, o facetservice.Overview, includeDescendants bool) error {
	if !o.Enabled {
		_, err := fmt.Fprintln(w, "facets disabled: no property keys configured")
		return err
	}
	if len(o.Keys) == 0 {
		_, err := fmt.Fprintln(w, "no properties indexed")
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d files, generation %d\n", o.Files, o.Generation)
	for _, k := range o.Keys {
		fmt.Fprintf(&b, "%s (%d)\n", k.DisplayName, k.Notes)
		for _, v := range k.Values {
			n := v.Notes
			if includeDescendants {
				n = v.Total
			}
			name := v.DisplayPath
			if i := strings.LastIndex(name, "/"); i >= 0 {
				name = name[i+1:]
			}
			fmt.Fprintf(&b, "%s%s (%d)\n", strings.Repeat("  ", v.Depth), name, n)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
