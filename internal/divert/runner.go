package divert

// CommandRunner abstracts external tool execution so rule management can be
// tested without touching the host firewall.
type CommandRunner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}

// RealCommandRunner executes actual commands.
// Methods are implemented in command_linux.go and command_stub.go.
type RealCommandRunner struct{}
