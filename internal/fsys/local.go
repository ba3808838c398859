package fsys

import (
	"os"
	"sort"
)

// local implements Stat and ReadDir on the host filesystem. Both backends
// embed it and differ only in how they subscribe.
type local struct{}

func (local) Stat(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return infoFrom(path, fi), nil
}

func (local) ReadDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func infoFrom(path string, fi os.FileInfo) Info {
	kind := KindFile
	if fi.IsDir() {
		kind = KindDir
	}
	return Info{
		Path:     path,
		Identity: identityOf(path, fi),
		Kind:     kind,
		ModTime:  fi.ModTime(),
		Size:     fi.Size(),
	}
}
