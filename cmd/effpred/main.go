// effpred trains and serves the machine efficiency status classifier.
//
// Usage:
//
//	effpred run                 prepare data, train and evaluate
//	effpred prepare             data preparation only
//	effpred train               train and evaluate from artifacts/processed
//	effpred serve               HTTP form and JSON API
//	effpred runs [--limit=N]    recent training runs
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
