// Package cli defines the Builder type, which allows one to build the command
// line application of the commitment tree in a modular way, independently of
// the library that parses the arguments.
//
//	builder := ucli.NewBuilder("tct", nil)
//
//	cmd := builder.SetCommand("root")
//	cmd.SetDescription("Print the root of the tree")
//	cmd.SetAction(func(flags cli.Flags) error {
//		fmt.Println(flags.Path("db"))
//		return nil
//	})
//
//	builder.Build().Run(os.Args)
package cli

// Builder is an application builder interface. One can set properties of an
// application then build it.
type Builder interface {
	// SetCommand creates a new command with the given name and returns its
	// builder.
	SetCommand(name string) CommandBuilder

	// Build returns the application.
	Build() Application
}

// Application is the main interface to run the CLI.
type Application interface {
	Run(arguments []string) error
}

// CommandBuilder is a command builder interface. One can set properties of a
// specific command like its name and description and what it should do when
// invoked.
type CommandBuilder interface {
	// SetDescription sets the value of the description for this command.
	SetDescription(value string)

	// SetFlags sets the flags for this command.
	SetFlags(...Flag)

	// SetAction sets the action for this command.
	SetAction(Action)

	// SetSubCommand creates a subcommand for this command.
	SetSubCommand(name string) CommandBuilder
}

// Action is a function that will be executed when a command is invoked.
type Action func(Flags) error

// Flag is an identifier for the definition of the flags.
type Flag interface {
	Flag()
}

// Flags provides the primitives to an action to read the flags. Global flags
// are visible from every command.
type Flags interface {
	// IsSet returns true if the flag was given on the command line or through
	// its environment variable.
	IsSet(name string) bool

	String(name string) string

	StringSlice(name string) []string

	Bool(name string) bool

	Uint64(name string) uint64

	Path(name string) string
}
