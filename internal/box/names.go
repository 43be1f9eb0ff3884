package box

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// displayPrefixRunes is how much of a file name the list shows before the
// extension.
const displayPrefixRunes = 15

// splitName splits "name.ext" at the last dot. Names without a dot have an
// empty extension.
func splitName(name string) (prefix, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// NormalizeUploadName rewrites an iOS "HEIC" capture name to "jpg". Any
// other name is returned unchanged.
func NormalizeUploadName(name string) string {
	prefix, ext := splitName(name)
	if strings.EqualFold(ext, "heic") {
		return prefix + ".jpg"
	}
	return name
}

// DisplayName shortens a title for list rendering: at most 15 characters of
// the name followed by the extension. Transfer paths always use the full
// title.
func DisplayName(title string) string {
	prefix, ext := splitName(title)
	if utf8.RuneCountInString(prefix) > displayPrefixRunes {
		prefix = string([]rune(prefix)[:displayPrefixRunes])
	}
	if ext == "" {
		return prefix
	}
	return prefix + "." + ext
}

// LocalPath is where a file is downloaded: the title verbatim inside dir, so
// repeated opens of the same title overwrite the same path. Directory parts
// in the title are stripped to keep the path inside dir.
func LocalPath(dir, title string) string {
	name := filepath.Base(filepath.Clean("/" + filepath.FromSlash(title)))
	if name == string(filepath.Separator) || name == "." {
		name = "download"
	}
	return filepath.Join(dir, name)
}
