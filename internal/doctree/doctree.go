package doctree

import "strings"

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// maxHeadingDepth is the deepest "#" marker PlanText emits.
const maxHeadingDepth = 6

// PlanText renders the tree as heading-marked plain text: every titled node
// becomes a "# Title" line, nested nodes get one more "#", followed by its
// body. Untitled nodes contribute body text only.
func (t *DocTree) PlanText() string {
	var blocks []string
	var walk func(nodes []*DocNode, depth int)
	walk = func(nodes []*DocNode, depth int) {
		for _, n := range nodes {
			if title := headingLine(n.Title); title != "" {
				blocks = append(blocks, strings.Repeat("#", min(depth, maxHeadingDepth))+" "+title)
			}
			if body := strings.TrimSpace(n.Text); body != "" {
				blocks = append(blocks, body)
			}
			walk(n.Children, depth+1)
		}
	}
	walk(t.Children, 1)
	return strings.Join(blocks, "\n\n")
}

func headingLine(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

// Builder assembles a DocTree from a flat stream of headings and text,
// nesting each heading under the closest preceding heading of lower level.
type Builder struct {
	root  *DocNode
	stack []level
	text  strings.Builder
}

type level struct {
	node  *DocNode
	depth int
}

func NewBuilder() *Builder {
	root := &DocNode{}
	return &Builder{
		root:  root,
		stack: []level{{node: root, depth: 0}},
	}
}

// Heading opens a new section at depth (1 = top level).
func (b *Builder) Heading(depth int, title string) {
	b.flush()
	node := &DocNode{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].depth >= depth {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, node)
	b.stack = append(b.stack, level{node: node, depth: depth})
}

// Text appends a paragraph to the current section.
func (b *Builder) Text(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(t)
}

func (b *Builder) flush() {
	t := b.text.String()
	b.text.Reset()
	if t == "" {
		return
	}
	top := b.stack[len(b.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// Tree finishes the document. Text seen before the first heading becomes a
// leading untitled node.
func (b *Builder) Tree(title string) *DocTree {
	b.flush()
	tree := &DocTree{Title: title}
	if b.root.Text != "" {
		tree.Children = append(tree.Children, &DocNode{Text: b.root.Text})
	}
	tree.Children = append(tree.Children, b.root.Children...)
	return tree
}
