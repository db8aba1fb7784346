package internal

// Context is the translation state threaded from one command to the next. It's a plain value: Translate returns
// the updated copy and never keeps a reference to it.
type Context struct {
	// Function is the enclosing function, it qualifies label names.
	Function string
	// Unit is the compilation unit being translated, it qualifies static symbols.
	Unit string
	// CallSites numbers return address labels. Never reset during a run.
	CallSites int
	// Comparisons numbers the branch labels of eq, gt and lt. Never reset during a run.
	Comparisons int
}

func NewContext() Context {
	return Context{}
}

// EnterUnit starts a new compilation unit. Only the scope is reset, the counters carry over so that labels
// stay unique across every unit of the output.
func (ctx Context) EnterUnit(unit string) Context {
	ctx.Unit = unit
	ctx.Function = ""
	return ctx
}

// scope names the code being translated, for return address labels.
func (ctx Context) scope() string {
	switch {
	case ctx.Function != "":
		return ctx.Function
	case ctx.Unit != "":
		return ctx.Unit
	default:
		return "Bootstrap"
	}
}
