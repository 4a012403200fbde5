/*
Package stanza runs keyword scripts: tab-delimited lines whose cells are
routed to actions by declarative patterns.

A route is declared as a list of tokens. Constant tokens must appear
literally; parameter tokens have the form "[name](contentPattern){cells}"
where the content pattern and the cell count are optional. Routes are
compiled into anchored regular expressions over the tab-joined cells of a
keyword occurrence.

When several routes match one occurrence, the most specific wins. Route A is
more specific than route B when every sequence of cells A accepts is also
accepted by B, and not the other way around. The registry computes these
containment relations once, with finite automata, before the first search.

# Usage

	eng := stanza.New(stanza.WithLogger(logger))

	eng.Register("ui", []string{"Click", "[locator](id=.*)"}, clickByID)
	eng.Register("ui", []string{"Click", "[locator]"}, click)
	if err := eng.Seal(); err != nil {
		log.Fatal(err)
	}

	kw, err := eng.Match(ctx, "Click", "id=loginBtn")
	// kw.Route is "Click [locator](id=.*)"

	result, err := eng.RunFiles(ctx, "smoke.stanza")
	if domain.IsFatal(err) {
		os.Exit(1)
	}

# Actions

An action is a ports.Action, or a function of the shape
func(context.Context, any) (any, error). Actions that implement
ports.ArgsProvider receive their parameters decoded into a struct;
other actions receive a map of parameter names to cell values.

Package actions provides built-in keywords such as Print, Set and Assert.
*/
package stanza
