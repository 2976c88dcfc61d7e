package domain

import (
	"path"
	"strings"
)

// AssetKind classifies a file inside a project
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindModel AssetKind = "model"
	AssetKindOther AssetKind = "other"
)

// Asset is a file stored in a project folder
type Asset struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	Kind      AssetKind `json:"kind"`
	SizeBytes int64     `json:"size_bytes"`
}

var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "webp": true,
}

var modelExtensions = map[string]bool{
	"stl": true, "obj": true, "3mf": true, "fbx": true, "glb": true, "gltf": true,
}

// ParseAssetKind maps a wire value to a kind; anything unknown is "other"
func ParseAssetKind(s string) AssetKind {
	switch AssetKind(strings.ToLower(s)) {
	case AssetKindImage:
		return AssetKindImage
	case AssetKindModel:
		return AssetKindModel
	default:
		return AssetKindOther
	}
}

// UnmarshalText keeps unknown kinds from breaking decoding
func (k *AssetKind) UnmarshalText(text []byte) error {
	*k = ParseAssetKind(string(text))
	return nil
}

// KindFromFilename classifies a file by extension the same way the server does
func KindFromFilename(name string) AssetKind {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	switch {
	case imageExtensions[ext]:
		return AssetKindImage
	case modelExtensions[ext]:
		return AssetKindModel
	default:
		return AssetKindOther
	}
}

// Name returns the base name of the asset's path
func (a Asset) Name() string {
	return path.Base(a.FilePath)
}

// IsImage reports whether the asset can be used as a main image
func (a Asset) IsImage() bool {
	return a.Kind == AssetKindImage
}

// ValidateUploadName rejects file names the server will refuse to store
func ValidateUploadName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return NewValidationError("File name is empty")
	case strings.Contains(name, ".."),
		strings.ContainsAny(name, "/\\"),
		strings.ContainsRune(name, 0):
		return NewValidationError("Invalid file name: " + name)
	}
	return nil
}
