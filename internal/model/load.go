package model

import (
	"fmt"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	"github.com/hsmgen/hsmgen/internal/diag"
)

// rawState mirrors one entry under a `states:` mapping. Recognized
// keys are decoded explicitly; unknown keys are ignored, per §4.A.
type rawState struct {
	Initial     string          `yaml:"initial"`
	States      yaml.Node       `yaml:"states"`
	Transitions []rawTransition `yaml:"transitions"`
	Entry       string          `yaml:"entry"`
	Exit        string          `yaml:"exit"`
	Do          string          `yaml:"do"`
	Orthogonal  bool            `yaml:"orthogonal"`
	History     bool            `yaml:"history"`
	Decisions   yaml.Node       `yaml:"decisions"`
}

type rawTransition struct {
	Guard  string `yaml:"guard"`
	Action string `yaml:"action"`
	To     string `yaml:"to"`
}

type rawHooks struct {
	Entry      string `yaml:"entry"`
	Exit       string `yaml:"exit"`
	Do         string `yaml:"do"`
	Transition string `yaml:"transition"`
}

type rawContextField struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// rawDocument mirrors the root keys of §6.
type rawDocument struct {
	Lang        yaml.Node         `yaml:"lang"`
	Initial     string            `yaml:"initial"`
	States      yaml.Node         `yaml:"states"`
	Transitions []rawTransition   `yaml:"transitions"`
	Decisions   yaml.Node         `yaml:"decisions"`
	Hooks       rawHooks          `yaml:"hooks"`
	Context     []rawContextField `yaml:"context"`
	ContextInit string            `yaml:"context_init"`
	Includes    string            `yaml:"includes"`
}

// Load reads and parses path into a Document. Apart from duplicate
// sibling names and duplicate decision names, which it reports itself
// as a *diag.ValidationError while building the tree, it does not
// validate the invariants of §3; call validate.Validate on the result
// before relying on it.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &diag.InputError{Path: path, Err: err}
	}
	defer f.Close()

	var raw rawDocument
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return nil, &diag.InputError{Path: path, Err: err}
	}

	doc := &Document{
		Decisions: orderedmap.New[string, *Decision](),
		Hooks: Hooks{
			Entry:      raw.Hooks.Entry,
			Exit:       raw.Hooks.Exit,
			Do:         raw.Hooks.Do,
			Transition: raw.Hooks.Transition,
		},
		ContextInit: raw.ContextInit,
		Includes:    raw.Includes,
	}
	for _, cf := range raw.Context {
		doc.Context = append(doc.Context, ContextField{Name: cf.Name, Type: cf.Type})
	}

	langs, err := decodeLangs(&raw.Lang)
	if err != nil {
		return nil, &diag.InputError{Path: path, Err: err}
	}
	doc.Langs = langs

	root := &State{Name: "root", Kind: KindOR, Path: nil}
	if err := buildChildren(root, &raw.States, doc.Decisions, path); err != nil {
		return nil, err
	}
	root.Initial = lookupChild(root, raw.Initial)
	root.InitialRaw = raw.Initial
	for _, rt := range raw.Transitions {
		root.Transitions = append(root.Transitions, &Transition{
			Guard:  rt.Guard,
			Action: rt.Action,
			ToRaw:  rt.To,
		})
	}
	if err := mergeDecisions(doc.Decisions, root, raw.Decisions); err != nil {
		return nil, err
	}

	doc.Root = root
	return doc, nil
}

func decodeLangs(n *yaml.Node) ([]string, error) {
	if n == nil || n.Kind == 0 {
		return nil, nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return nil, err
		}
		if s == "" {
			return nil, nil
		}
		return []string{s}, nil
	case yaml.SequenceNode:
		var list []string
		if err := n.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("lang: expected scalar or sequence")
	}
}

// buildChildren decodes the `states:` mapping of a raw node into
// parent's Children, recursing into composites. It stamps Parent and
// Path as each child is appended, mirroring the append-then-stamp
// order a fluent state builder would use.
func buildChildren(parent *State, statesNode *yaml.Node, decisions *orderedmap.OrderedMap[string, *Decision], srcPath string) error {
	parent.Children = orderedmap.New[string, *State]()
	if statesNode == nil || statesNode.Kind == 0 {
		return nil
	}
	if statesNode.Kind != yaml.MappingNode {
		return fmt.Errorf("states: expected a mapping")
	}

	for i := 0; i+1 < len(statesNode.Content); i += 2 {
		name := statesNode.Content[i].Value
		if _, exists := parent.Children.Get(name); exists {
			return &diag.ValidationError{
				NodePath: parent.PathString(),
				Rule:     diag.RuleDuplicateSibling,
				Message:  fmt.Sprintf("state name %q used more than once among children of %s", name, parent.PathString()),
			}
		}
		var rs rawState
		if err := statesNode.Content[i+1].Decode(&rs); err != nil {
			return fmt.Errorf("state %s: %w", name, err)
		}

		child := &State{
			Name:    name,
			Parent:  parent,
			Entry:   rs.Entry,
			Exit:    rs.Exit,
			Do:      rs.Do,
			History: rs.History,
		}
		child.Path = append(append([]string{}, parent.Path...), name)

		if rs.Orthogonal {
			child.Kind = KindAND
		}

		if err := buildChildren(child, &rs.States, decisions, srcPath); err != nil {
			return err
		}
		if !child.IsLeaf() && !rs.Orthogonal {
			child.Kind = KindOR
		}

		for _, rt := range rs.Transitions {
			child.Transitions = append(child.Transitions, &Transition{
				Guard:  rt.Guard,
				Action: rt.Action,
				ToRaw:  rt.To,
			})
		}

		if rs.Initial != "" {
			child.Initial = lookupChild(child, rs.Initial)
			child.InitialRaw = rs.Initial
		}

		if err := mergeDecisions(decisions, child, rs.Decisions); err != nil {
			return err
		}

		parent.Children.Set(name, child)
	}
	return nil
}

// lookupChild returns the already-built child named name, or nil.
// The validator is responsible for reporting a missing initial child;
// the loader simply records whatever is found (possibly nil).
func lookupChild(parent *State, name string) *State {
	if parent.Children == nil {
		return nil
	}
	s, _ := parent.Children.Get(name)
	return s
}

// mergeDecisions flattens one state's `decisions:` map into the
// global dictionary, failing on a name collision regardless of which
// state contributed it. Decoded from the raw yaml.Node (rather than a
// Go map) so that declaration order is preserved, keeping decision
// dispatch code emission deterministic across runs.
func mergeDecisions(into *orderedmap.OrderedMap[string, *Decision], owner *State, node yaml.Node) error {
	if node.Kind == 0 {
		return nil
	}
	ownerPath := owner.PathString()
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("decisions under %q: expected a mapping", ownerPath)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var rawTs []rawTransition
		if err := node.Content[i+1].Decode(&rawTs); err != nil {
			return fmt.Errorf("decision %q under %q: %w", name, ownerPath, err)
		}
		if _, exists := into.Get(name); exists {
			return &diag.ValidationError{
				NodePath: ownerPath,
				Rule:     diag.RuleDuplicateDecision,
				Message:  fmt.Sprintf("decision %q declared more than once (duplicate found under state %q)", name, ownerPath),
			}
		}
		d := &Decision{Name: name, Owner: owner}
		for _, rt := range rawTs {
			d.Transitions = append(d.Transitions, &Transition{
				Guard:  rt.Guard,
				Action: rt.Action,
				ToRaw:  rt.To,
			})
		}
		into.Set(name, d)
	}
	return nil
}
