// Command checksum prints the SHA-256 digest of a runtime binary in the form expected by NODESHIM_SHA256.
package main

import (
	"fmt"
	"os"

	"github.com/nodeshim/nodeshim/verify"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <file>\n", os.Args[0])
		os.Exit(1)
	}

	sum, err := verify.Checksum(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println(sum)
}
