//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

var commands = []string{"anaUltraLatency", "clusterAnaScurve", "gemdbView"}

// Build compiles every command into ./bin
func Build() error {
	mg.Deps(BuildAnaUltraLatency, BuildClusterAnaScurve, BuildGemdbView)
	fmt.Println("Compilation finished")
	return nil
}

// buildCommand needs cgo for the HDF5 bindings.
func buildCommand(name string) error {
	fmt.Printf("Building %s executable...\n", name)
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", "build", "-o", "./bin/"+name, "./"+name)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func BuildAnaUltraLatency() error {
	return buildCommand("anaUltraLatency")
}

func BuildClusterAnaScurve() error {
	return buildCommand("clusterAnaScurve")
}

func BuildGemdbView() error {
	return buildCommand("gemdbView")
}

// Test runs the unit tests of every package
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Clean removes the built commands
func Clean() error {
	for _, name := range commands {
		if err := sh.Rm("./bin/" + name); err != nil {
			return err
		}
	}
	return nil
}
