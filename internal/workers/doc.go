/*
Package workers sizes the goroutine pools of fingerprinter.

runtime.NumCPU reports host CPUs even inside a CPU-limited container, while
GOMAXPROCS follows the cgroup limit (Go 1.19+). [Count] scales from
GOMAXPROCS:

	workers.Count(1.5, 8) // 1.5 per CPU, at most 8

[ForFiles] resolves the --workers setting of a run: a positive value is used
as is, 0 means the default of three concurrent files and a negative value
selects ForMixed sizing.
*/
package workers
