package models

// FileRecord tracks the names of the files uploaded for a module, in upload
// order. It lives in the Files collection keyed by module id and has no link
// to the Modules collection.
type FileRecord struct {
	FileList []string `json:"fileList"`
}

// Remove drops the first entry matching name. Nothing happens when the name
// is not in the list.
func (f *FileRecord) Remove(name string) bool {
	for i, v := range f.FileList {
		if v == name {
			f.FileList = append(f.FileList[:i], f.FileList[i+1:]...)
			return true
		}
	}
	return false
}
