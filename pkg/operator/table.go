// Package operator holds the mutable, process-lifetime mapping from a
// user-definable operator character to its binary precedence.
package operator

// Table is never a package-level global: the driver owns exactly one
// Table for the REPL's lifetime and hands a pointer to both the parser
// and the code generator, per the "explicit Context" design note this
// module follows throughout.
type Table struct {
	precedence map[byte]int
}

// New returns a Table preloaded with Kaleidoscope's five built-in
// operators.
func New() *Table {
	t := &Table{precedence: make(map[byte]int)}
	t.Define('=', 2)
	t.Define('<', 10)
	t.Define('+', 20)
	t.Define('-', 20)
	t.Define('*', 40)
	return t
}

// Precedence looks up c's precedence. ok is false for any character
// that has never been defined as a binary operator.
func (t *Table) Precedence(c byte) (prec int, ok bool) {
	prec, ok = t.precedence[c]
	return
}

// IsDefined reports whether c is currently a binary operator.
func (t *Table) IsDefined(c byte) bool {
	_, ok := t.precedence[c]
	return ok
}

// Define installs or overwrites c's precedence. prec must be in
// [1,100]; callers are responsible for enforcing that range before
// calling Define, since the table itself only ever stores what it is
// given.
func (t *Table) Define(c byte, prec int) {
	t.precedence[c] = prec
}

// Remove rolls back a Define, e.g. after the operator's defining
// function failed to lower. Removing an operator character that was
// never defined is a no-op.
func (t *Table) Remove(c byte) {
	delete(t.precedence, c)
}
