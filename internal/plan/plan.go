// Package plan renders the journey sequence as a Graphviz graph. Steps are
// chained in run order inside one cluster per journey, and a dashed edge
// links the step that provides a session value to each later step that
// needs it.
package plan

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"

	"github.com/hohopark/hoho-journey/internal/journey"
)

const graphName = "journeys"

// Unmet describes a step that needs a session value no earlier step
// provides. Such a step can only ever be skipped.
type Unmet struct {
	Journey string
	Step    string
	Key     string
}

func (u Unmet) String() string {
	return fmt.Sprintf("%s / %s needs %s, which no earlier step provides", u.Journey, u.Step, u.Key)
}

func nodeID(j, s int) string {
	return fmt.Sprintf("j%d_s%d", j+1, s+1)
}

// Build returns the graph for journeys in run order, plus every need with no
// earlier provider.
func Build(journeys []journey.Journey) (*gographviz.Graph, []Unmet, error) {
	g := gographviz.NewGraph()
	if err := g.SetName(graphName); err != nil {
		return nil, nil, err
	}
	if err := g.SetDir(true); err != nil {
		return nil, nil, err
	}
	if err := g.AddAttr(graphName, "rankdir", "LR"); err != nil {
		return nil, nil, err
	}

	providers := map[string]string{}
	var unmet []Unmet

	for ji, j := range journeys {
		cluster := fmt.Sprintf("cluster_%d", ji+1)
		if err := g.AddSubGraph(graphName, cluster, map[string]string{
			"label": strconv.Quote(fmt.Sprintf("%d. %s", ji+1, j.Name)),
		}); err != nil {
			return nil, nil, err
		}

		for si, step := range j.Steps {
			id := nodeID(ji, si)
			attrs := map[string]string{
				"label": strconv.Quote(step.Name),
				"shape": "box",
			}

			var deps []string
			for _, key := range step.Needs {
				if _, ok := providers[key]; !ok {
					unmet = append(unmet, Unmet{Journey: j.Name, Step: step.Name, Key: key})
					attrs["color"] = "red"
					continue
				}
				deps = append(deps, key)
			}

			if err := g.AddNode(cluster, id, attrs); err != nil {
				return nil, nil, err
			}
			if si > 0 {
				if err := g.AddEdge(nodeID(ji, si-1), id, true, nil); err != nil {
					return nil, nil, err
				}
			}
			for _, key := range deps {
				if err := g.AddEdge(providers[key], id, true, map[string]string{
					"style": "dashed",
					"label": strconv.Quote(key),
				}); err != nil {
					return nil, nil, err
				}
			}
			for _, key := range step.Provides {
				providers[key] = id
			}
		}
	}
	return g, unmet, nil
}

// DOT renders journeys as Graphviz DOT source.
func DOT(journeys []journey.Journey) (string, []Unmet, error) {
	g, unmet, err := Build(journeys)
	if err != nil {
		return "", nil, err
	}
	return g.String(), unmet, nil
}
