package arkhe_test

// Shared component fixtures for the package tests.

type ComponentA struct {
	D float64
}

func (ComponentA) Name() string { return "arkhe_test.component_a" }

type ComponentB struct {
	Str string
}

func (ComponentB) Name() string { return "arkhe_test.component_b" }

type ComponentC struct {
	Count int
}

func (ComponentC) Name() string { return "arkhe_test.component_c" }
