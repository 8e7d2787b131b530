package report

import (
	"fmt"
	"strings"

	"github.com/panbanda/kindred/pkg/models"
)

// ClusterDiagram renders the inheritance edges of one cluster as a Mermaid
// classDiagram, one "Base <|-- Child" line per distinct edge. Members
// without bases appear as bare class declarations.
func ClusterDiagram(c models.Cluster) string {
	return classDiagram(models.ClusterList{c})
}

// AllClustersDiagram renders every cluster in a single classDiagram.
func AllClustersDiagram(clusters models.ClusterList) string {
	return classDiagram(clusters)
}

// Fence wraps a diagram in a markdown mermaid code block.
func Fence(diagram string) string {
	return "```mermaid\n" + diagram + "```\n"
}

func classDiagram(clusters models.ClusterList) string {
	var sb strings.Builder
	sb.WriteString("classDiagram\n")

	seen := make(map[string]bool)
	emit := func(line string) {
		if !seen[line] {
			seen[line] = true
			sb.WriteString(line)
		}
	}

	for _, c := range clusters {
		for _, m := range c {
			if len(m.Bases) == 0 {
				emit(fmt.Sprintf("    class %s\n", mermaidName(m.ClassName)))
				continue
			}
			for _, base := range m.Bases {
				emit(fmt.Sprintf("    %s <|-- %s\n", mermaidName(base), mermaidName(m.ClassName)))
			}
		}
	}
	return sb.String()
}

// mermaidName keeps Python identifiers intact and backquotes anything else.
func mermaidName(name string) string {
	for _, r := range name {
		if r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9') {
			return "`" + strings.ReplaceAll(name, "`", "") + "`"
		}
	}
	return name
}
