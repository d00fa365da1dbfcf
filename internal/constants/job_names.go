package constants

// Job names written to job_log
const (
	JobMigrate     = "catalog_migrate"
	JobCatalogLoad = "catalog_load"
)

// FailedSuffix marks a job_log row recorded for a failed run.
const FailedSuffix = ":failed"
