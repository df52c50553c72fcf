package cli

// StringFlag is a definition of a command flag expected to be parsed as a
// string. EnvVars lists the environment variables that can provide the value.
//
// - implements cli.Flag
type StringFlag struct {
	Name     string
	Usage    string
	Required bool
	Value    string
	EnvVars  []string
}

// Flag implements cli.Flag.
func (flag StringFlag) Flag() {}

// StringSliceFlag is a definition of a command flag that can be repeated, and
// whose values are parsed as strings.
//
// - implements cli.Flag
type StringSliceFlag struct {
	Name     string
	Usage    string
	Required bool
	Value    []string
}

// Flag implements cli.Flag.
func (flag StringSliceFlag) Flag() {}

// PathFlag is a definition of a command flag expected to be parsed as a path
// to a file.
//
// - implements cli.Flag
type PathFlag struct {
	Name     string
	Usage    string
	Required bool
	Value    string
	EnvVars  []string
}

// Flag implements cli.Flag.
func (flag PathFlag) Flag() {}

// Uint64Flag is a definition of a command flag expected to be parsed as an
// unsigned integer.
//
// - implements cli.Flag
type Uint64Flag struct {
	Name     string
	Usage    string
	Required bool
	Value    uint64
}

// Flag implements cli.Flag.
func (flag Uint64Flag) Flag() {}

// BoolFlag is a definition of a command flag expected to be parsed as a
// boolean.
//
// - implements cli.Flag
type BoolFlag struct {
	Name     string
	Usage    string
	Required bool
	Value    bool
}

// Flag implements cli.Flag.
func (flag BoolFlag) Flag() {}
