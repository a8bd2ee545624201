// Command cmc is the content management console.
package main

import (
	"os"

	"github.com/kilupskalvis/cmc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
