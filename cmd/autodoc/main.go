// Command autodoc is the AutoDoc Writer client: the web front end
// (autodoc serve) and its command-line counterpart.
package main

import "github.com/autodocwriter/autodoc/internal/cli"

func main() {
	cli.Execute()
}
