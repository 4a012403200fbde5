/*
Package runner executes scenarios of keyword occurrences.

Keywords of one scenario run sequentially on one goroutine that owns the
scenario variable scope; independent scenarios run concurrently on a bounded
pool. Every occurrence goes through the dispatcher, and the aggregated
RunResult is persisted to the configured ResultStore.

# Usage

	r := runner.NewRunner(dispatcher,
		runner.WithWorkers(4),
		runner.WithStore(store),
		runner.WithLogger(logger),
	)

	result, err := r.Run(ctx, scenarios)
	if domain.IsFatal(err) {
		os.Exit(1)
	}
*/
package runner
