// Package display renders user-facing console output: load progress,
// warnings about skipped inputs, and the rate and transition tables printed
// after each run.
//
// # Progress
//
//	progress := display.NewProgressIndicator(os.Stderr, len(files))
//	progress.Start()
//	for _, file := range files {
//	    progress.Step(file, err)
//	}
//	progress.Complete(loaded)
//
// Step is safe to call from the loader's worker goroutines.
//
// # Warnings
//
//	warning := display.WarnSkippedFiles([]string{"a.json: unexpected end of JSON input"})
//	warning.Display(os.Stderr)
//
// # Tables
//
// RenderRates and RenderTransitions print box-drawn tables. Rates read as
// "81.0% [72.2, 87.5]", the bracket holding the 95% Wilson interval; empty
// groups and empty transition rows print n/a.
//
// Colors are applied only when the writer is a terminal and NO_COLOR is unset.
// All functions take an io.Writer so output can be captured in tests.
package display
