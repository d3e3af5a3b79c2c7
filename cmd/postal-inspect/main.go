package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	postal "github.com/openvenues/gopostal/parser"

	"github.com/poolcare-ownerverify/internal/normalize"
)

// postal-inspect is a diagnostic tool for investigating how libpostal
// parses assessor mailing lines, and how that compares with the
// canonical forms the matching pipeline actually uses. It is not part
// of the verification service.
func main() {
	var (
		address = flag.String("address", "", "Single address to inspect")
		file    = flag.String("file", "", "File of addresses, one per line")
	)
	flag.Parse()

	switch {
	case *address != "":
		inspect(*address)
	case *file != "":
		if err := inspectFile(*file); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Println("Usage: postal-inspect -address \"100 N 1st Ave Tucson AZ 85701\"")
		fmt.Println("       postal-inspect -file addresses.txt")
	}
}

func inspect(address string) {
	fmt.Printf("Input:      %s\n", address)
	fmt.Printf("Canonical:  %s\n", normalize.Text(address))
	fmt.Printf("Abbreviated: %s\n", normalize.Address(address))
	if houseNumber, ok := normalize.HouseNumber(address); ok {
		fmt.Printf("House no:   %s\n", houseNumber)
	}
	fmt.Printf("Street core: %s\n", normalize.StreetCore(address))
	fmt.Println()

	components := postal.ParseAddress(address)
	if len(components) == 0 {
		fmt.Println("libpostal returned no components")
		return
	}
	fmt.Println("libpostal components:")
	for _, component := range components {
		fmt.Printf("  %-14s %s\n", component.Label+":", component.Value)
	}
}

func inspectFile(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		inspect(line)
		fmt.Println(strings.Repeat("-", 60))
		count++
	}
	fmt.Printf("Inspected %d addresses\n", count)
	return scanner.Err()
}
