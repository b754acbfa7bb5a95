package main

import (
	"fmt"
	"os"

	"github.com/s01095235840-oss/pastel-buddy-shop/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
