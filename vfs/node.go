package vfs

// Kind distinguishes file from directory nodes.
type Kind uint8

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Node is a single entity in the virtual tree. File nodes hold byte
// content; directory nodes hold a child set.
type Node struct {
	children map[string]*Node
	path     string
	content  []byte
	kind     Kind
}

// Path returns the absolute slash-separated path of the node.
func (n *Node) Path() string {
	return n.path
}

// Kind returns whether the node is a file or a directory.
func (n *Node) Kind() Kind {
	return n.kind
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.kind == KindDirectory
}

// Size returns the content length in bytes; zero for directories.
func (n *Node) Size() int64 {
	return int64(len(n.content))
}

// Content returns the node's byte content. The returned slice is the
// live buffer, not a copy; callers harvest results from it after the
// invocation completes.
func (n *Node) Content() []byte {
	return n.content
}
