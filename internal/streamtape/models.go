package streamtape

// AccountInfo is the result of /account/info.
type AccountInfo struct {
	APIID    string `json:"apiid"`
	Email    string `json:"email"`
	SignupAt string `json:"signup_at"`
}

// UploadTarget is the result of /file/ul.
type UploadTarget struct {
	URL        string `json:"url"`
	ValidUntil string `json:"valid_until"`
}

// Folder is a remote folder; /file/createfolder only fills ID.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// File is a remote file entry of /file/listfolder.
type File struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Link      string `json:"link"`
	LinkID    string `json:"linkid"`
	CreatedAt int64  `json:"created_at"`
}

// FolderContents lists the immediate children of a folder.
type FolderContents struct {
	Folders []Folder `json:"folders"`
	Files   []File   `json:"files"`
}

type createdFolder struct {
	FolderID string `json:"folderid"`
}

// UploadOptions are the optional parameters of an upload-target request.
type UploadOptions struct {
	SHA256   string
	HTTPOnly bool
}
