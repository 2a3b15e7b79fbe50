// Command tribunal checks whether a claim is faithful to a fact by staging a
// time-boxed debate between LLM personas and asking a jury for a verdict.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
