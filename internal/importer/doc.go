/*
Package importer moves media from external directories into the managed
library.

Preview walks a source directory, groups files into logical items, and
surfaces each item with a small thumbnail so a user can choose what to
bring in. Import then copies the chosen items into date-sharded
destination directories (YYYY/MM/DD by EXIF capture date, falling back to
file times), one atomic temp-file-plus-rename copy per file. Items fail
independently; a cancelled run leaves no partially written files behind.
*/
package importer
