//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binaryName = "immersion"

// Build compiles the immersion binary.
func Build() error {
	fmt.Println("Building", binaryName, "...")
	return sh.RunV("go", "build", "-o", binaryName, "./cmd/immersion")
}

// Test runs all tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Install builds and installs the binary into GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	return sh.RunV("go", "install", "./cmd/immersion")
}

// Clean removes build artifacts.
func Clean() error {
	fmt.Println("Cleaning...")
	if err := os.Remove(filepath.Join(".", binaryName)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// All vets, tests and builds.
func All() {
	mg.SerialDeps(Vet, Test, Build)
}
