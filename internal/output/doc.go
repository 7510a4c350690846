// Package output writes records as a JSON array.
//
// A Writer streams records as they are produced, so a run never holds more
// than one encoded record in memory. File outputs are written to a temporary
// file in the destination directory and renamed into place by Close; an
// aborted run leaves any previous output untouched.
package output
