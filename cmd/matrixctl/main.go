// Command matrixctl works with exported evaluation documents offline.
package main

import (
	"os"
)

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
