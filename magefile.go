//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Build

// Build compiles duckask into bin/.
func Build() error {
	fmt.Println("Building...")
	return sh.Run("go", "build", "-o", "./bin/duckask", "./cmd/duckask")
}

// Run starts the interactive session against ./data.
func Run() error {
	mg.Deps(Build)
	return sh.RunV("./bin/duckask")
}

func Test() error {
	fmt.Println("Running Tests...")
	return sh.Run("go", "test", "./...")
}

func Check() error {
	mg.Deps(Fmt, Vet)
	return nil
}

func Fmt() error {
	fmt.Println("Running go fmt...")
	return sh.Run("go", "fmt", "./...")
}

func Vet() error {
	fmt.Println("Running go vet...")
	return sh.Run("go", "vet", "./...")
}

func Tidy() error {
	fmt.Println("Running go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

func Clean() error {
	fmt.Println("Cleaning...")
	return os.RemoveAll("bin")
}
