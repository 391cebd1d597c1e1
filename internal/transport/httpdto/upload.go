package httpdto

type PresignUploadRequest struct {
	ContentType string `json:"contentType"`
}

type PresignUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	FileURL   string `json:"fileUrl"`
}
