package entity

// LibraryEntry is a BookRecord the user favorited or downloaded.
type LibraryEntry struct {
	BookRecord
	LocalFileURI string `json:"localFileUri,omitempty"`
	DownloadedAt int64  `json:"downloadedAt,omitempty"` // epoch millis
	IsFavorite   bool   `json:"isFavorite"`
	IsDownloaded bool   `json:"isDownloaded"`
}
