// Package fileutil discovers benchmark result files on disk.
//
// ScanDirectory walks an input directory and returns the files whose base name
// matches at least one include glob and no exclude glob. Globs use
// filepath.Match syntax ("persistence_*.json", "*_stats.json").
//
// Output is sorted by path so that downstream loading and report diffs are
// reproducible. Non-fatal walk errors (unreadable subdirectories) are collected
// in ScanResult.Errors and scanning continues.
//
// Example:
//
//	res, err := fileutil.ScanDirectory("results/", fileutil.ScanOptions{
//	    Include: []string{"*.json"},
//	    Exclude: []string{"*_stats.json"},
//	})
//	if err != nil {
//	    return err
//	}
//	for _, f := range res.Files {
//	    fmt.Println(f)
//	}
package fileutil
