package dto

import "time"

// BackupFile describes a snapshot on disk.
type BackupFile struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	SizeInMB  string    `json:"size_in_mb"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupList is the listing response.
type BackupList struct {
	Count   int          `json:"count"`
	Backups []BackupFile `json:"backups"`
}

// RestoreResult names the snapshot restored and the safety copy taken beforehand.
type RestoreResult struct {
	RestoredFrom string `json:"restored_from"`
	SafetyBackup string `json:"safety_backup"`
}

// PhotoUploadResult returns the stored photo reference.
type PhotoUploadResult struct {
	PhotoPath string `json:"photo_path"`
}
