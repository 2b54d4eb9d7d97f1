// Package nodegraph executes precomputation plans as a graph of texture
// nodes, the shape a compute-capable shader graph takes.
//
// Compile turns a plan into three node kinds: kernel nodes evaluate a pass
// into fresh textures, output nodes select one texture of a kernel node, and
// add nodes sum two textures. Additive blending becomes an add node over the
// previous value of the table, so every node is immutable once evaluated and
// can be released as soon as its last consumer has run.
package nodegraph

import (
	"errors"
	"fmt"

	"github.com/gogpu/atmosphere/precompute"
)

// ErrCycle is returned when a graph cannot be ordered topologically.
var ErrCycle = errors.New("nodegraph: cycle")

// Kind is the operation of a node.
type Kind int

const (
	// KindKernel evaluates a pass kernel over its target grid.
	KindKernel Kind = iota
	// KindOutput selects one output of a kernel node.
	KindOutput
	// KindAdd sums its two inputs texel by texel in float32.
	KindAdd
	// KindZero is a zero-initialised table.
	KindZero
)

func (k Kind) String() string {
	switch k {
	case KindKernel:
		return "kernel"
	case KindOutput:
		return "output"
	case KindAdd:
		return "add"
	case KindZero:
		return "zero"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is one operation of the graph.
type Node struct {
	ID    int
	Kind  Kind
	Label string
	Shape precompute.Shape

	// Pass is set on kernel nodes.
	Pass *precompute.Pass
	// Bindings maps the kernel's inputs to the nodes providing them.
	Bindings map[precompute.TextureID]*Node

	// Slot is the selected output index of an output node.
	Slot int

	// Inputs are the nodes this node depends on.
	Inputs []*Node
}

// Graph is a compiled plan.
type Graph struct {
	// Nodes in evaluation order.
	Nodes []*Node
	// Results holds the final node of every table the plan writes.
	Results [precompute.NumTextures]*Node
}

type builder struct {
	nodes   []*Node
	current [precompute.NumTextures]*Node
}

func (b *builder) add(n *Node) *Node {
	n.ID = len(b.nodes)
	b.nodes = append(b.nodes, n)
	return n
}

// value returns the node currently holding table id, creating a zero node if
// nothing has written it yet.
func (b *builder) value(id precompute.TextureID, shape precompute.Shape) *Node {
	if n := b.current[id]; n != nil {
		return n
	}
	n := b.add(&Node{Kind: KindZero, Label: id.String(), Shape: shape})
	b.current[id] = n
	return n
}

// Compile builds the node graph of plan.
func Compile(plan *precompute.Plan) (*Graph, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	var b builder
	for i := range plan.Passes {
		pass := &plan.Passes[i]
		kernel := &Node{
			Kind:     KindKernel,
			Label:    fmt.Sprintf("%s/%d", pass.Name, pass.Order),
			Shape:    pass.Target,
			Pass:     pass,
			Bindings: make(map[precompute.TextureID]*Node, len(pass.Inputs)),
		}
		for _, id := range pass.Inputs {
			src := b.value(id, plan.Shapes[id])
			kernel.Bindings[id] = src
			kernel.Inputs = append(kernel.Inputs, src)
		}
		b.add(kernel)

		for slot, o := range pass.Outputs {
			out := b.add(&Node{
				Kind:   KindOutput,
				Label:  fmt.Sprintf("%s.%s", kernel.Label, o.Texture),
				Shape:  pass.Target,
				Slot:   slot,
				Inputs: []*Node{kernel},
			})
			if o.Blend == precompute.BlendAdd {
				prev := b.value(o.Texture, plan.Shapes[o.Texture])
				out = b.add(&Node{
					Kind:   KindAdd,
					Label:  fmt.Sprintf("%s+=", o.Texture),
					Shape:  pass.Target,
					Inputs: []*Node{prev, out},
				})
			}
			b.current[o.Texture] = out
		}
	}

	order, err := sortNodes(b.nodes)
	if err != nil {
		return nil, err
	}
	return &Graph{Nodes: order, Results: b.current}, nil
}

// sortNodes orders nodes so that every node follows its inputs (Kahn).
// Ties keep creation order, which preserves pass order.
func sortNodes(nodes []*Node) ([]*Node, error) {
	indegree := make([]int, len(nodes))
	consumers := make([][]*Node, len(nodes))
	for _, n := range nodes {
		for _, in := range n.Inputs {
			indegree[n.ID]++
			consumers[in.ID] = append(consumers[in.ID], n)
		}
	}

	ready := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if indegree[n.ID] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]*Node, 0, len(nodes))
	for len(ready) > 0 {
		// Pick the earliest created ready node.
		best := 0
		for i := range ready {
			if ready[i].ID < ready[best].ID {
				best = i
			}
		}
		n := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, n)
		for _, c := range consumers[n.ID] {
			indegree[c.ID]--
			if indegree[c.ID] == 0 {
				ready = append(ready, c)
			}
		}
	}
	if len(order) != len(nodes) {
		return nil, ErrCycle
	}
	return order, nil
}

// Count returns the number of nodes of each kind.
func (g *Graph) Count() map[Kind]int {
	out := make(map[Kind]int)
	for _, n := range g.Nodes {
		out[n.Kind]++
	}
	return out
}
