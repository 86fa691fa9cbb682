// Package brand centralizes naming constants so forks can rebrand in one place.
package brand

const (
	Name        = "Shunt"
	LowerName   = "shunt"
	BinaryName  = "shunt"
	Description = "host packet-diversion daemon"

	DefaultConfigDir = "/etc/shunt"
	ConfigFileName   = "shunt.hcl"
)

// Version and BuildTime are stamped at link time via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)
