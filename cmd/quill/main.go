package main

import "github.com/mcoot/quill/internal/cli"

func main() {
	cli.Execute()
}
