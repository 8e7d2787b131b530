package hierarchy

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/graph/encoding/dot"
)

// ToDOT renders a class graph in Graphviz format.
func ToDOT(g *ClassGraph) ([]byte, error) {
	return dot.Marshal(g, g.Title, "", "  ")
}

// ToMermaid renders a class graph as a Mermaid flowchart. Parents with
// children use the "parent" class; unresolved bases use "external".
func ToMermaid(g *ClassGraph) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var parents, externals []string
	for _, n := range g.SortedNodes() {
		label := EscapeMermaidLabel(n.Name)
		if !n.External {
			label += "<br/><small>" + EscapeMermaidLabel(n.Ref.File) + "</small>"
		}
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", n.Key(), label)
		switch {
		case n.External:
			externals = append(externals, n.Key())
		case n.HasChildren:
			parents = append(parents, n.Key())
		}
	}

	for _, l := range g.SortedLinks() {
		arrow := "-->"
		if l.Ambiguous {
			arrow = "-.->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", l.F.Key(), arrow, l.T.Key())
	}

	if len(parents) > 0 {
		sb.WriteString("    classDef parent fill:#add8e6\n")
		fmt.Fprintf(&sb, "    class %s parent\n", strings.Join(parents, ","))
	}
	if len(externals) > 0 {
		sb.WriteString("    classDef external stroke-dasharray: 5 5\n")
		fmt.Fprintf(&sb, "    class %s external\n", strings.Join(externals, ","))
	}

	return sb.String()
}

// EscapeMermaidLabel escapes characters Mermaid treats as syntax inside a
// quoted label.
func EscapeMermaidLabel(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		`"`, "&quot;",
		"<", "&lt;",
		">", "&gt;",
		"|", "&#124;",
		"[", "&#91;",
		"]", "&#93;",
		"{", "&#123;",
		"}", "&#125;",
	)
	return r.Replace(s)
}
