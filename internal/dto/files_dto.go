package dto

// UploadResponse describes the stored asset metadata returned to the client.
type UploadResponse struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
	MimeType     string `json:"mime_type"`
	Checksum     string `json:"checksum"`
	FileName     string `json:"file_name"`
}

// AvatarResponse is returned after the caller's avatar was replaced.
type AvatarResponse struct {
	ProfilePictureURL string         `json:"profile_picture_url"`
	Upload            UploadResponse `json:"upload"`
}
