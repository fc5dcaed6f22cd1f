package main

import (
	"github.com/untitaker/heaptrack-trim/internal/cli/cmd"
	"github.com/untitaker/heaptrack-trim/pkg/maxprocs"
)

func main() {
	maxprocs.Adjust()
	cmd.Execute()
}
