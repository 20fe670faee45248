// Command cutforge generates splice-detection training data from speech
// recordings: it transcribes each recording, asks an LLM which words an
// editor would cut, and synthesizes natural and unnatural splice variants
// of every cut.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cutforge: %v\n", err)
		os.Exit(1)
	}
}
