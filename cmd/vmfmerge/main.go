// Command vmfmerge performs a three-way (or N-way) structural merge of
// Valve Map Files.
package main

import (
	"os"

	"github.com/darthryking/VMFMergeTool/cmd/vmfmerge/cmd"
)

func main() {
	os.Exit(cmd.Main())
}
