// Package export writes the store contents and run reports as YAML.
//
// [ToFile] streams every file record as one YAML sequence, compressing
// with zstd when the target name ends in ".zst". Records are read page by
// page, so exporting a large store does not hold it in memory.
// [WriteReport] writes the summary of a run.
package export
