package queryexpr

// Node is a parsed expression value.
type Node interface {
	Position() Pos
}

// Call is a builder invocation: equal("status", "published") or Query.limit(10).
type Call struct {
	Namespace string `json:"namespace,omitempty"` // qualifier before '.', empty when unqualified
	Name      string `json:"name"`
	Args      []Node `json:"args,omitempty"`
	Pos       Pos    `json:"pos"`
}

// List is an array literal.
type List struct {
	Items []Node `json:"items"`
	Pos   Pos    `json:"pos"`
}

// Object is an object literal; member order is preserved.
type Object struct {
	Members []Member `json:"members"`
	Pos     Pos      `json:"pos"`
}

// Member is a single key: value pair within an object literal.
type Member struct {
	Key   string `json:"key"`
	Value Node   `json:"value"`
	Pos   Pos    `json:"pos"`
}

// Literal is a scalar: string, json.Number, bool or nil.
type Literal struct {
	Value any `json:"value"`
	Pos   Pos `json:"pos"`
}

func (n *Call) Position() Pos    { return n.Pos }
func (n *List) Position() Pos    { return n.Pos }
func (n *Object) Position() Pos  { return n.Pos }
func (n *Literal) Position() Pos { return n.Pos }
