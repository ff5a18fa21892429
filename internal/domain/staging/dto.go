package staging

// AddPathsRequest stages files already on disk by absolute path.
type AddPathsRequest struct {
	Paths []string `json:"paths" validate:"required,min=1,dive,required"`
}

// FileRequest targets a single staged file by path.
type FileRequest struct {
	Path string `json:"path" validate:"required"`
}

// SetAltRequest updates the alt text of a staged file.
type SetAltRequest struct {
	Path string `json:"path" validate:"required"`
	Alt  string `json:"alt"`
}

// FileResponse is the wire shape of one staged file.
type FileResponse struct {
	Path            string `json:"path"`
	Name            string `json:"name"`
	Size            int64  `json:"size"`
	MIMEType        string `json:"mime_type"`
	MediaType       string `json:"media_type"`
	Alt             string `json:"alt"`
	ThumbnailName   string `json:"thumbnail_name,omitempty"`
	PreviewURL      string `json:"preview_url,omitempty"`
	CustomThumbnail bool   `json:"custom_thumbnail"`
	Generating      bool   `json:"generating"`
}

// ListResponse is the wire shape of the staging queue.
type ListResponse struct {
	Files      []FileResponse `json:"files"`
	Generating bool           `json:"generating"`
}

func toFileResponse(f StagedFile) FileResponse {
	name, _, _ := f.ActiveThumbnail()
	previewURL := ""
	if h := f.ActivePreview(); h != "" {
		previewURL = "/previews/" + h
	}
	return FileResponse{
		Path:            f.Path,
		Name:            f.Name,
		Size:            f.Size,
		MIMEType:        f.MIMEType,
		MediaType:       string(f.MediaType),
		Alt:             f.Alt,
		ThumbnailName:   name,
		PreviewURL:      previewURL,
		CustomThumbnail: f.CustomThumbBlob != nil,
		Generating:      f.ThumbGenerating,
	}
}

func toListResponse(files []StagedFile, generating bool) ListResponse {
	out := ListResponse{Files: make([]FileResponse, 0, len(files)), Generating: generating}
	for _, f := range files {
		out.Files = append(out.Files, toFileResponse(f))
	}
	return out
}
