// Package mediatypes provides shared type definitions and utilities for media
// file handling across the catalog.
//
// This package exists as a dependency-free foundation that can be imported by
// other packages without creating import cycles. It contains primitive types,
// constants, and pure utility functions with no external dependencies beyond
// the standard library.
//
// # File and Item Types
//
// FileType classifies individual files by extension:
//
//	mediatypes.FileTypeImage // Supported image formats (jpg, png, heic, etc.)
//	mediatypes.FileTypeVideo // Supported video formats (mp4, mov, mkv, etc.)
//	mediatypes.FileTypeOther // Unrecognized or unsupported files
//
// ItemType classifies the logical items the grouper assembles from files:
//
//	mediatypes.ItemTypePhoto
//	mediatypes.ItemTypeLivePhoto // still image + companion video
//	mediatypes.ItemTypeVideo
//
// # Grouping Keys
//
// GroupKey strips the extension and any edited-suffix marker from a filename,
// producing the key the grouper uses to match an original capture with its
// edited variant and live companion:
//
//	mediatypes.GroupKey("IMG_001_edited.JPG") // "img_001"
//	mediatypes.GroupKey("IMG_001.MOV")        // "img_001"
package mediatypes
