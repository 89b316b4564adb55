/*
Package workers sizes and runs small worker pools.

Counts are derived from runtime.GOMAXPROCS, which Go sets from the
container CPU limit, instead of runtime.NumCPU, which reports host CPUs:

	n := workers.ForCPU(8) // thumbnail derivation, at most 8 workers
	n := workers.ForIO(16) // directory walks and remote calls

Operators can pin the count with THUMBNAIL_WORKERS.

Each fans a slice out over a bounded number of goroutines:

	workers.Each(ctx, n, files, func(ctx context.Context, name string) {
	    derive(ctx, name)
	})
*/
package workers
