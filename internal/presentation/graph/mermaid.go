// Package graph renders the specificity order of routes as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stanza/pkg/route"
)

// GenerateMermaid produces a Mermaid flowchart of routes.
// Routes are grouped in one subgraph per registry group. An edge A --> B
// means that every command A accepts is accepted by B too, so A wins when
// both match. Only routes sharing a name are compared, and transitive edges
// are omitted. Deprecated routes are drawn dashed.
func GenerateMermaid(routes []*route.Route) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	ids := make(map[*route.Route]string, len(routes))
	for i, rt := range routes {
		ids[rt] = fmt.Sprintf("r%d", i)
	}

	var groups []string
	byGroup := make(map[string][]*route.Route)
	for _, rt := range routes {
		if _, ok := byGroup[rt.Group()]; !ok {
			groups = append(groups, rt.Group())
		}
		byGroup[rt.Group()] = append(byGroup[rt.Group()], rt)
	}

	for _, g := range groups {
		fmt.Fprintf(&sb, "    subgraph %s[\"%s\"]\n", sanitizeMermaidID("g_"+g), escape(g))
		for _, rt := range byGroup[g] {
			fmt.Fprintf(&sb, "        %s[\"%s <br/> rating %d\"]\n", ids[rt], escape(rt.String()), rt.Rating())
		}
		sb.WriteString("    end\n")
	}

	for _, edge := range narrowerEdges(routes) {
		fmt.Fprintf(&sb, "    %s --> %s\n", ids[edge[0]], ids[edge[1]])
	}

	var deprecated []string
	for _, rt := range routes {
		if rt.Deprecated() {
			deprecated = append(deprecated, ids[rt])
		}
	}
	if len(deprecated) > 0 {
		sb.WriteString("\n    classDef deprecated stroke-dasharray: 5 5,color:#888;\n")
		fmt.Fprintf(&sb, "    class %s deprecated;\n", strings.Join(deprecated, ","))
	}

	return sb.String()
}

// narrowerEdges returns the pairs (a, b) where a is strictly more specific
// than b and no route sits between them.
func narrowerEdges(routes []*route.Route) [][2]*route.Route {
	n := len(routes)
	narrower := make([][]bool, n)
	for i := range narrower {
		narrower[i] = make([]bool, n)
	}
	for i, a := range routes {
		for j, b := range routes {
			if i == j || a.Name() != b.Name() {
				continue
			}
			// Approximated answers are still drawn.
			more, _ := a.MoreSpecificThan(b)
			narrower[i][j] = more
		}
	}

	var edges [][2]*route.Route
	for i := range routes {
		for j := range routes {
			if !narrower[i][j] {
				continue
			}
			direct := true
			for k := range routes {
				if narrower[i][k] && narrower[k][j] {
					direct = false
					break
				}
			}
			if direct {
				edges = append(edges, [2]*route.Route{routes[i], routes[j]})
			}
		}
	}
	return edges
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
