// Command simplexfit is the command-line harness for the Nelder-Mead
// demonstration problems.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
