package workload

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/vango-dev/bindery/pkg/binding"
	"github.com/vango-dev/bindery/pkg/reactive"
)

// Options shapes a workload.
type Options struct {
	// Width is the number of children per interior node.
	Width int

	// Depth is the number of levels below the root.
	Depth int

	// Fields is the number of animated fields.
	Fields int

	// Lazies is the number of lazy sums over the fields. Interior nodes
	// display them.
	Lazies int

	// Conditionals is how many children of each bottom-level node are
	// conditional nodes instead of plain leaves.
	Conditionals int

	// Seed makes targets and easings reproducible.
	Seed int64

	// TweenSeconds is the mean time a field takes to reach its target.
	TweenSeconds float32

	// ChurnEvery replaces one plain leaf through the node pool every n
	// steps. Zero disables churn.
	ChurnEvery int

	Logger *slog.Logger
}

var easings = []ease.TweenFunc{
	ease.Linear,
	ease.InOutQuad,
	ease.OutCubic,
	ease.InOutSine,
	ease.OutBounce,
}

// Workload owns the tree and the animated fields.
type Workload struct {
	opts   Options
	rt     *reactive.Runtime
	tree   *binding.Tree
	pool   *binding.Pool
	root   *binding.Node
	logger *slog.Logger
	rng    *rand.Rand

	fields []*reactive.Field[int]
	tweens []*gween.Tween
	lazies []*reactive.Lazy[int]

	// leaves holds the node bound to each display slot.
	leaves  []*binding.Node
	display []int
	plain   []int

	aggregates []int

	nodes int
	steps int
}

// New builds the workload tree on tree.
func New(tree *binding.Tree, opts Options) *Workload {
	opts.Width = max(opts.Width, 1)
	opts.Fields = max(opts.Fields, 1)
	opts.Depth = max(opts.Depth, 0)
	opts.Lazies = max(opts.Lazies, 0)
	opts.Conditionals = min(max(opts.Conditionals, 0), opts.Width)
	if opts.TweenSeconds <= 0 {
		opts.TweenSeconds = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "workload")
	}

	w := &Workload{
		opts:   opts,
		rt:     tree.Runtime(),
		tree:   tree,
		pool:   tree.NewPool(64),
		logger: opts.Logger,
		rng:    rand.New(rand.NewPCG(uint64(opts.Seed), 0x62696e64)),
	}

	w.fields = make([]*reactive.Field[int], opts.Fields)
	w.tweens = make([]*gween.Tween, opts.Fields)
	for i := range w.fields {
		start := w.rng.IntN(1000)
		w.fields[i] = reactive.NewField(w.rt, start)
		w.tweens[i] = w.newTween(start)
	}

	w.lazies = make([]*reactive.Lazy[int], opts.Lazies)
	for i := range w.lazies {
		w.lazies[i] = reactive.NewLazy(w.rt, w.sum(i),
			reactive.WithName("sum"+strconv.Itoa(i)),
			reactive.WithNoBranches())
	}

	w.root = w.newInterior()
	if opts.Depth > 0 {
		w.build(w.root, 1)
	}

	w.logger.Debug("workload built",
		"nodes", w.nodes,
		"leaves", len(w.leaves),
		"fields", len(w.fields),
		"lazies", len(w.lazies))
	return w
}

// sum returns the computation for lazy i: the sum of every field whose
// index is congruent to i.
func (w *Workload) sum(i int) func() int {
	return func() int {
		total := 0
		for j := i; j < len(w.fields); j += len(w.lazies) {
			total += w.fields[j].Get()
		}
		return total
	}
}

func (w *Workload) newTween(from int) *gween.Tween {
	to := w.rng.IntN(1000)
	d := w.opts.TweenSeconds * (0.5 + w.rng.Float32())
	return gween.New(float32(from), float32(to), d, easings[w.rng.IntN(len(easings))])
}

func (w *Workload) build(parent *binding.Node, level int) {
	for j := range w.opts.Width {
		var child *binding.Node
		switch {
		case level < w.opts.Depth:
			child = w.newInterior()
			parent.AppendChild(child)
			w.build(child, level+1)
			continue
		case j < w.opts.Conditionals:
			child = w.newCond()
		default:
			child = w.newLeaf(w.addSlot())
			w.plain = append(w.plain, len(w.leaves)-1)
		}
		parent.AppendChild(child)
	}
}

func (w *Workload) addSlot() int {
	w.display = append(w.display, 0)
	w.leaves = append(w.leaves, nil)
	return len(w.display) - 1
}

func (w *Workload) newInterior() *binding.Node {
	idx := len(w.aggregates)
	w.aggregates = append(w.aggregates, 0)
	w.nodes++

	var render binding.RenderFunc
	if len(w.lazies) > 0 {
		lazy := w.lazies[idx%len(w.lazies)]
		render = func(*binding.Node) error {
			v, err := lazy.Value()
			w.aggregates[idx] = v
			return err
		}
	}
	return w.tree.NewNode("group"+strconv.Itoa(idx), render)
}

func (w *Workload) newLeaf(slot int) *binding.Node {
	field := w.fields[slot%len(w.fields)]
	n := w.pool.Get("leaf"+strconv.Itoa(slot), func(*binding.Node) error {
		w.display[slot] = field.Get()
		return nil
	})
	w.leaves[slot] = n
	w.nodes++
	return n
}

func (w *Workload) newCond() *binding.Node {
	slot := w.addSlot()
	field := w.fields[slot%len(w.fields)]
	otherwise := func(*binding.Node) error {
		w.display[slot] = -field.Get()
		return nil
	}
	if len(w.lazies) > 0 {
		lazy := w.lazies[slot%len(w.lazies)]
		otherwise = func(*binding.Node) error {
			v, err := lazy.Value()
			w.display[slot] = -v
			return err
		}
	}
	n := w.tree.NewCond("cond"+strconv.Itoa(slot),
		func() bool { return field.Get()%2 == 0 },
		func(*binding.Node) error {
			w.display[slot] = field.Get()
			return nil
		},
		otherwise,
	)
	w.leaves[slot] = n
	w.nodes++
	return n
}

// Step advances every tween by dt and writes the rounded values.
func (w *Workload) Step(dt time.Duration) {
	w.steps++
	sec := float32(dt.Seconds())
	for i, tw := range w.tweens {
		v, done := tw.Update(sec)
		w.fields[i].Set(int(math.Round(float64(v))))
		if done {
			w.tweens[i] = w.newTween(w.fields[i].Peek())
		}
	}
	if w.opts.ChurnEvery > 0 && w.steps%w.opts.ChurnEvery == 0 {
		w.churn()
	}
}

// churn swaps a random plain leaf for a recycled node.
func (w *Workload) churn() {
	if len(w.plain) == 0 {
		return
	}
	slot := w.plain[w.rng.IntN(len(w.plain))]
	old := w.leaves[slot]
	parent := old.Parent()
	if parent == nil {
		return
	}
	idx := slices.Index(parent.Children(), old)

	w.pool.Put(old)
	w.nodes--
	parent.InsertChild(idx, w.newLeaf(slot))
	w.logger.Debug("leaf recycled", "slot", slot, "reused", w.pool.Reused())
}

// Root returns the tree root.
func (w *Workload) Root() *binding.Node {
	return w.root
}

// Tree returns the binding tree.
func (w *Workload) Tree() *binding.Tree {
	return w.tree
}

// Nodes returns the number of nodes in the tree.
func (w *Workload) Nodes() int {
	return w.nodes
}

// Fields returns the number of animated fields.
func (w *Workload) Fields() int {
	return len(w.fields)
}

// Steps returns how many times Step has run.
func (w *Workload) Steps() int {
	return w.steps
}
