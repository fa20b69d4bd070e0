// Package storage writes exported pages to disk.
//
// Layout:
//
//	{output}/{document title}/[NN] - {page title}.{ext}
//
// Titles are sanitized into single path components before use, and page
// files are written atomically through a temporary file in the same
// directory. Re-running an export produces the same paths and overwrites
// the previous files.
package storage
