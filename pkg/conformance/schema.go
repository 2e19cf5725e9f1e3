// Package conformance runs YAML suites of testlang programs against the
// interpreter and compares their output and errors.
package conformance

// Suite is one YAML file of test cases.
type Suite struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Tests       []Case `yaml:"tests"`

	// Path is the file the suite was loaded from.
	Path string `yaml:"-"`
}

// Case is a single program with its expected result. Output lists the
// printed lines in order. Error, when set, must match the error tag or
// appear in the error message.
type Case struct {
	Name   string   `yaml:"name"`
	Source string   `yaml:"source"`
	Output []string `yaml:"output,omitempty"`
	Error  string   `yaml:"error,omitempty"`
}
