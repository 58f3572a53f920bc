package macro

// Table is the name-to-expander registry a compiler front-end
// consults at every call site (spec §4.3 "macro table"). It is
// deliberately just a plain map, with no locking: the interesting behavior lives in
// the Expander implementations, not in the registry itself.
type Table struct {
	expanders map[string]Expander
}

// NewTable creates an empty Table with the def_macro built-in
// pre-registered under name (spec §4.3 step 0: "def_macro itself is
// always available, without requiring prior registration").
func NewTable(defMacroName string) *Table {
	t := &Table{expanders: make(map[string]Expander)}
	t.Set(defMacroName, DefMacro{})
	return t
}

// Set registers expander under name, replacing any prior registration
// (spec §8 "Idempotent registration": registering the same name twice
// simply rebinds it, it does not error).
func (t *Table) Set(name string, expander Expander) {
	t.expanders[name] = expander
}

// Get resolves a macro name to its expander, if any is registered.
func (t *Table) Get(name string) (Expander, bool) {
	e, ok := t.expanders[name]
	return e, ok
}
