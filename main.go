// Repertoire - opening repertoire practice from the command line
package main

import (
	"github.com/hailam/repertoire/internal/cli"
)

func main() {
	cli.Execute()
}
