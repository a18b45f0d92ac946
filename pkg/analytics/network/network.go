// Package network builds a directed response graph over conversation
// participants and derives connectivity statistics, communities, and a
// renderer-agnostic layout payload from it.
package network

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"chatlytics-server/pkg/errors"
	"chatlytics-server/pkg/model"
)

// Stats summarizes the response graph.
type Stats struct {
	TotalNodes       int                `json:"total_nodes"`
	TotalEdges       int                `json:"total_edges"`
	Density          float64            `json:"density"`
	IsConnected      bool               `json:"is_connected"`
	MostCentral      string             `json:"most_central"`
	MostRespondedTo  string             `json:"most_responded_to"`
	MostResponsive   string             `json:"most_responsive"`
	DegreeCentrality map[string]float64 `json:"degree_centrality"`
	NumCommunities   int                `json:"num_communities"`
	Communities      [][]string         `json:"communities"`
}

// Edge is one response relation: From responded to To, Weight times.
type Edge struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Weight      int    `json:"weight"`
	Description string `json:"description"`
}

// Node is one participant with its degree detail.
type Node struct {
	Name        string  `json:"name"`
	InDegree    int     `json:"in_degree"`
	OutDegree   int     `json:"out_degree"`
	TotalDegree int     `json:"total_degree"`
	Centrality  float64 `json:"centrality"`
	Description string  `json:"description"`
}

// GraphNode is a positioned node for rendering.
type GraphNode struct {
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Size     float64 `json:"size"`
	Color    int     `json:"color"`
	Messages int     `json:"messages"`
}

// GraphEdge is a weighted edge for rendering, width pre-scaled.
type GraphEdge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight int     `json:"weight"`
	Width  float64 `json:"width"`
}

// GraphData is the renderer-agnostic visualization payload.
type GraphData struct {
	Title string      `json:"title"`
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Report is the network analysis output. Available is false when the
// conversation has fewer than two participants; that is a result, not a
// failure.
type Report struct {
	Available bool      `json:"available"`
	Reason    string    `json:"reason,omitempty"`
	Stats     Stats     `json:"network_stats"`
	Edges     []Edge    `json:"edges"`
	Nodes     []Node    `json:"nodes"`
	Graph     GraphData `json:"graph_data"`
}

// Analyzer builds and analyzes response graphs.
type Analyzer struct {
	logger *logrus.Entry
}

// NewAnalyzer builds a network analyzer.
func NewAnalyzer(logger *logrus.Logger) *Analyzer {
	return &Analyzer{logger: logger.WithField("component", "network")}
}

// responseGraph pairs the gonum graph with the name mapping for its nodes.
type responseGraph struct {
	g     *simple.WeightedDirectedGraph
	ids   map[string]int64
	names map[int64]string
}

// Analyze builds the response graph and derives statistics and layout.
func (a *Analyzer) Analyze(conv *model.Conversation) (*Report, error) {
	if conv == nil || conv.Len() == 0 {
		id := ""
		if conv != nil {
			id = conv.ID
		}
		return nil, errors.NewEmptyConversation(id)
	}

	participants := conv.ParticipantNames()
	if len(participants) < 2 {
		a.logger.Debug("Network analysis needs at least two participants")
		return &Report{
			Available: false,
			Reason:    "requires at least 2 participants",
		}, nil
	}

	rg := buildGraph(conv, participants)
	stats := a.computeStats(rg)

	return &Report{
		Available: true,
		Stats:     stats,
		Edges:     edgeDetails(rg),
		Nodes:     nodeDetails(rg, stats.DegreeCentrality),
		Graph:     a.graphData(rg, conv),
	}, nil
}

// buildGraph adds every participant as a node and an edge responder→author
// for each adjacent pair of messages with different senders.
func buildGraph(conv *model.Conversation, participants []string) *responseGraph {
	rg := &responseGraph{
		g:     simple.NewWeightedDirectedGraph(0, 0),
		ids:   make(map[string]int64, len(participants)),
		names: make(map[int64]string, len(participants)),
	}
	for i, name := range participants {
		id := int64(i)
		rg.ids[name] = id
		rg.names[id] = name
		rg.g.AddNode(simple.Node(id))
	}

	msgs := conv.SortedMessages()
	for i := 1; i < len(msgs); i++ {
		prev, curr := msgs[i-1].Sender, msgs[i].Sender
		if prev == curr {
			continue
		}
		from, okFrom := rg.ids[curr]
		to, okTo := rg.ids[prev]
		if !okFrom || !okTo {
			continue
		}
		w := 1.0
		if e := rg.g.WeightedEdge(from, to); e != nil {
			w = e.Weight() + 1
		}
		rg.g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(from), T: simple.Node(to), W: w})
	}
	return rg
}

func (a *Analyzer) computeStats(rg *responseGraph) Stats {
	n := rg.g.Nodes().Len()
	edges := rg.g.Edges().Len()

	stats := Stats{
		TotalNodes:       n,
		TotalEdges:       edges,
		IsConnected:      len(topo.ConnectedComponents(graph.Undirect{G: rg.g})) == 1,
		DegreeCentrality: make(map[string]float64, n),
	}
	if n > 1 {
		stats.Density = float64(edges) / float64(n*(n-1))
	}

	// Degree centrality over sorted names so argmax ties resolve
	// deterministically.
	names := sortedNames(rg)
	bestCentral, bestIn, bestOut := -1.0, -1, -1
	for _, name := range names {
		id := rg.ids[name]
		in := countNodes(rg.g.To(id))
		out := countNodes(rg.g.From(id))
		centrality := float64(in+out) / float64(n-1)
		stats.DegreeCentrality[name] = centrality

		if centrality > bestCentral {
			bestCentral = centrality
			stats.MostCentral = name
		}
		if in > bestIn {
			bestIn = in
			stats.MostRespondedTo = name
		}
		if out > bestOut {
			bestOut = out
			stats.MostResponsive = name
		}
	}

	stats.Communities, stats.NumCommunities = a.communities(rg, names)
	return stats
}

// communities partitions the undirected view by modularity maximization.
// Two or fewer nodes, or a detection failure, collapse to a single
// community of all nodes.
func (a *Analyzer) communities(rg *responseGraph, names []string) (groups [][]string, count int) {
	single := func() ([][]string, int) {
		all := make([]string, len(names))
		copy(all, names)
		return [][]string{all}, 1
	}
	if len(names) <= 2 {
		return single()
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.WithField("cause", r).Debug("Community detection failed")
			groups, count = single()
		}
	}()

	reduced := community.Modularize(graph.Undirect{G: rg.g}, 1, nil)
	structure := reduced.Structure()
	groups = make([][]string, 0, len(structure))
	for _, comm := range structure {
		members := make([]string, 0, len(comm))
		for _, node := range comm {
			members = append(members, rg.names[node.ID()])
		}
		sort.Strings(members)
		groups = append(groups, members)
	}
	return groups, len(groups)
}

func edgeDetails(rg *responseGraph) []Edge {
	edges := make([]Edge, 0, rg.g.Edges().Len())
	it := rg.g.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		from := rg.names[e.From().ID()]
		to := rg.names[e.To().ID()]
		w := int(e.Weight())
		edges = append(edges, Edge{
			From:        from,
			To:          to,
			Weight:      w,
			Description: fmt.Sprintf("%s responded to %s %d times", from, to, w),
		})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Weight != edges[j].Weight {
			return edges[i].Weight > edges[j].Weight
		}
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

func nodeDetails(rg *responseGraph, centrality map[string]float64) []Node {
	nodes := make([]Node, 0, len(rg.ids))
	for _, name := range sortedNames(rg) {
		id := rg.ids[name]
		in := countNodes(rg.g.To(id))
		out := countNodes(rg.g.From(id))
		nodes = append(nodes, Node{
			Name:        name,
			InDegree:    in,
			OutDegree:   out,
			TotalDegree: in + out,
			Centrality:  centrality[name],
			Description: fmt.Sprintf("%s: %d incoming, %d outgoing connections", name, in, out),
		})
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].TotalDegree > nodes[j].TotalDegree
	})
	return nodes
}

// graphData lays the graph out with a force-directed model and attaches the
// node sizing used by the renderer. Layout failure degrades to a circle.
func (a *Analyzer) graphData(rg *responseGraph, conv *model.Conversation) GraphData {
	positions := a.layoutPositions(rg)

	messageCounts := make(map[string]int)
	for _, m := range conv.Messages {
		messageCounts[m.Sender]++
	}

	data := GraphData{Title: fmt.Sprintf("Conversation Network: %s", conv.Title)}
	for _, name := range sortedNames(rg) {
		id := rg.ids[name]
		in := countNodes(rg.g.To(id))
		out := countNodes(rg.g.From(id))
		pos := positions[id]
		data.Nodes = append(data.Nodes, GraphNode{
			Name:     name,
			X:        pos[0],
			Y:        pos[1],
			Size:     nodeSize(messageCounts[name]),
			Color:    in + out,
			Messages: messageCounts[name],
		})
	}

	for _, e := range edgeDetails(rg) {
		data.Edges = append(data.Edges, GraphEdge{
			From:   e.From,
			To:     e.To,
			Weight: e.Weight,
			Width:  math.Min(float64(e.Weight)/2, 10),
		})
	}
	return data
}

func (a *Analyzer) layoutPositions(rg *responseGraph) map[int64][2]float64 {
	positions := make(map[int64][2]float64, len(rg.ids))

	func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.WithField("cause", r).Debug("Force layout failed")
				positions = nil
			}
		}()
		eades := layout.EadesR2{Repulsion: 1, Rate: 0.05, Updates: 50, Theta: 0.1}
		opt := layout.NewOptimizerR2(rg.g, eades.Update)
		for opt.Update() {
		}
		for _, id := range nodeIDs(rg) {
			v := opt.Coord2(id)
			positions[id] = [2]float64{v.X, v.Y}
		}
	}()

	if positions == nil {
		positions = make(map[int64][2]float64, len(rg.ids))
		ids := nodeIDs(rg)
		for i, id := range ids {
			angle := 2 * math.Pi * float64(i) / float64(len(ids))
			positions[id] = [2]float64{math.Cos(angle), math.Sin(angle)}
		}
	}
	return positions
}

func nodeSize(messages int) float64 {
	return math.Max(20, math.Min(float64(messages*2), 80))
}

func sortedNames(rg *responseGraph) []string {
	names := make([]string, 0, len(rg.ids))
	for name := range rg.ids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func nodeIDs(rg *responseGraph) []int64 {
	ids := make([]int64, 0, len(rg.names))
	for id := range rg.names {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func countNodes(it graph.Nodes) int {
	n := 0
	for it.Next() {
		n++
	}
	return n
}
