/*
Package workers sizes worker pools for containerized environments.

Go 1.19+ sets GOMAXPROCS from container CPU limits, but runtime.NumCPU
still returns the host machine's core count. Sizing a pool from NumCPU on
a 64-core node with a 2-core cgroup limit produces 64 workers fighting over
2 cores. The helpers here use GOMAXPROCS instead:

	// Thumbnail encoding, pixel work.
	n := workers.ForCPU(8)

	// File copies, database writes.
	n := workers.ForIO(16)

	// Read file, process, write result.
	n := workers.ForMixed(12)

Operators can override the calculation with the CATALOG_WORKERS environment
variable; a limit passed to the helper still caps the override.
*/
package workers
