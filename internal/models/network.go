package models

// NetworkRate is the throughput over the last sampling interval in bytes/sec.
type NetworkRate struct {
	DownloadSpeed int64 `json:"download_speed"`
	UploadSpeed   int64 `json:"upload_speed"`
}
