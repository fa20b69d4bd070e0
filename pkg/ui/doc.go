// Package ui renders terminal output for lucidexport: styled messages, a
// progress line, the end-of-run summary table and desktop notifications.
//
// Output settings are package-wide and set once with Configure. Quiet mode
// hides everything except errors.
package ui
