package main

import "github.com/perf-analysis/cmd/solver/cmd"

func main() {
	cmd.Execute()
}
