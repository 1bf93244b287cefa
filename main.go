// Package main is the entry point for the stocknotifier application.
// It fetches per-symbol financial data from an external market-data provider,
// screens the results against value-investing heuristics, exports CSV reports,
// and pushes Slack notifications. Batch retrieval is driven by a resilient
// continuation engine that classifies errors, retries with exponential backoff,
// and halts only on systemic failure.
package main

import "stocknotifier/cmd"

func main() {
	cmd.Execute()
}
