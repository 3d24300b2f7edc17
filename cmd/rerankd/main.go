package main

import (
	"github.com/king-dopey/local-reranker/internal/cli"
)

func main() {
	cli.Execute()
}
