// Command wrapmesh chats with a language model that can load and invoke wraps.
package main

import "github.com/hupe1980/wrapmesh/internal/cli"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Execute(version)
}
