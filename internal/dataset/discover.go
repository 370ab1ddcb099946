package dataset

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/pkg/errors"
)

var partRegexp = regexp.MustCompile(`(?i)^[^.].*\.csv$`)

// DiscoverParts returns the CSV files that make up the dataset at root.
// A plain file is returned as the only part; a directory is walked and
// every visible *.csv file beneath it is returned in lexical order.
func DiscoverParts(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "discover parts")
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	entries := make([]string, 0)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if partRegexp.MatchString(d.Name()) {
			entries = append(entries, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "discover parts")
	}
	sort.Strings(entries)
	return entries, nil
}
