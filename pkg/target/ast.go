package target

// Node is one expression tree node. Trees are immutable once built; a
// resolved tree (see Resolve) contains no MatchNodegroup clauses.
type Node interface {
	node()
}

// ClauseNode is a leaf delegating to one matcher backend.
type ClauseNode struct {
	Clause Clause
}

// AndNode matches when both operands match.
type AndNode struct {
	Left, Right Node
}

// OrNode matches when either operand matches.
type OrNode struct {
	Left, Right Node
}

// NotNode inverts its operand.
type NotNode struct {
	Operand Node
}

// NothingNode matches no minion. It is substituted for a cyclic nodegroup
// branch so the rest of the expression keeps working.
type NothingNode struct{}

func (*ClauseNode) node()  {}
func (*AndNode) node()     {}
func (*OrNode) node()      {}
func (*NotNode) node()     {}
func (*NothingNode) node() {}
