package gorm

import "time"

// JobLog is an append-only record of one job run
type JobLog struct {
	JobName string    `gorm:"column:jobname;type:text;not null" db:"jobname" json:"jobname"`
	RunDT   time.Time `gorm:"column:run_dt;not null" db:"run_dt" json:"run_dt"`
}

// TableName specifies the table name for GORM
func (JobLog) TableName() string {
	return "job_log"
}
