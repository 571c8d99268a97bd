// Command ferrokv is the CLI entry point: device lifecycle, kv, stream and
// maintenance operations for local use, and the RPC daemon for remote use.
package main

import "github.com/ferrokv/ferrokv/cmd"

func main() {
	cmd.Execute()
}
