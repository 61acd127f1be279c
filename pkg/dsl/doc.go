/*
Package dsl provides a fluent builder for machine snapshots.

It is an alternative to writing .tm or YAML files by hand, useful for tests,
generated machines and examples. The builder only collects the description;
Build checks that the result would load, using the same rules as
machine.Load.

Example usage:

	snap, err := dsl.New().
		Tape("aab").
		Add("q0").Start().
			On("a", "b", domain.Right, "q0").
			On("b", "a", domain.Right, "q0").
			On("_", "_", domain.Left, "done").
		Add("done").At(200, 0).Final().
		Build()
	if err != nil {
		log.Fatal(err)
	}
	m, err := machine.Open(snap)
*/
package dsl
