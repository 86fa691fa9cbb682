package cmd

import (
	"fmt"

	"grimm.is/shunt/internal/brand"
)

// RunVersion prints the build identity.
func RunVersion() {
	fmt.Printf("%s %s", brand.Name, brand.Version)
	if brand.BuildTime != "" {
		fmt.Printf(" (built %s)", brand.BuildTime)
	}
	fmt.Println()
}
